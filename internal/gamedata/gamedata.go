package gamedata

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// GameDuration is the length of one game.
	GameDuration = 90 * time.Minute

	// TimerPollInterval is how often the timer loop checks the clock.
	TimerPollInterval = 10 * time.Second

	// MotiveCount is the number of distinct motives, one per character.
	MotiveCount = 5
)

// ErrUnsupportedPlayerCount is returned when clue buckets are requested for
// a player count outside the table.
var ErrUnsupportedPlayerCount = errors.New("unsupported player count")

// Character is a playable character.
type Character struct {
	ID   string
	Name string
}

// characters is ordered; the order is the canonical iteration order used
// when assigning motives.
var characters = []Character{
	{ID: "charlie", Name: "Charlie Barnes"},
	{ID: "dakota", Name: "Dakota Travis"},
	{ID: "evan", Name: "Evan Holwell"},
	{ID: "jack", Name: "Jack Briarwood"},
	{ID: "julia", Name: "Julia North"},
}

// clueTimes are the minute marks (remaining time) at which clue cards are sent.
var clueTimes = []int{90, 80, 70, 60, 50, 45, 40, 35, 30, 20}

// bucketSizes splits the clue cards into one group per player.
var bucketSizes = map[int][]int{
	3: {3, 3, 4},
	4: {2, 2, 3, 3},
	5: {2, 2, 2, 2, 2},
}

// Characters returns the character catalog in canonical order.
func Characters() []Character {
	return append([]Character(nil), characters...)
}

// CharacterIDs returns the character ids in canonical order.
func CharacterIDs() []string {
	ids := make([]string, len(characters))
	for i, c := range characters {
		ids[i] = c.ID
	}
	return ids
}

// DisplayName returns the full name of the character with the given id.
func DisplayName(id string) (string, bool) {
	for _, c := range characters {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

// IsCharacter reports whether name, compared case-insensitively, is a
// character id. Role names such as "Jack" match.
func IsCharacter(name string) bool {
	_, ok := DisplayName(strings.ToLower(name))
	return ok
}

// BucketsFor returns the clue group sizes for playerCount players.
func BucketsFor(playerCount int) ([]int, error) {
	sizes, ok := bucketSizes[playerCount]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPlayerCount, playerCount)
	}
	return append([]int(nil), sizes...), nil
}

// ClueSchedule returns the clue reveal minute marks, descending.
func ClueSchedule() []int {
	return append([]int(nil), clueTimes...)
}
