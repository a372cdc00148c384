package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"

	"motive-discord-bot/internal/gamedata"
	"motive-discord-bot/internal/guild"
)

// State is the per-guild game state. It lives for the lifetime of the
// process and is reset in place between games.
type State struct {
	GuildID string

	mu        sync.Mutex
	rng       *rand.Rand
	setup     bool
	started   bool
	automatic bool
	showTimer bool
	motives   map[string]int
}

// Snapshot is a copy of a State's fields.
type Snapshot struct {
	GuildID   string
	Setup     bool
	Started   bool
	Automatic bool
	ShowTimer bool
	Motives   map[string]int
}

// Player binds a character role to the guild role that currently holds it.
type Player struct {
	Name string
	Role *discordgo.Role
}

// New creates the state for a guild. rng drives motive assignment; a
// seeded generator gives a reproducible assignment.
func New(guildID string, rng *rand.Rand) *State {
	s := &State{GuildID: guildID, rng: rng}
	s.resetLocked()
	return s
}

// Reset reinitialises every field: all flags go back to false and a fresh
// motive assignment is drawn. Motives read before Reset are no longer valid.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *State) resetLocked() {
	s.setup = false
	s.started = false
	s.automatic = false
	s.showTimer = false
	s.motives = assignMotives(s.rng)
}

// assignMotives shuffles 1..5 and zips it with the character ids in
// canonical order.
func assignMotives(rng *rand.Rand) map[string]int {
	motives := make([]int, gamedata.MotiveCount)
	for i := range motives {
		motives[i] = i + 1
	}
	rng.Shuffle(len(motives), func(i, j int) { motives[i], motives[j] = motives[j], motives[i] })

	out := make(map[string]int, len(motives))
	for i, id := range gamedata.CharacterIDs() {
		out[id] = motives[i]
	}
	return out
}

// Motive returns the motive assigned to a character id.
func (s *State) Motive(characterID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.motives[characterID]
	return m, ok
}

// Motives returns a copy of the full assignment.
func (s *State) Motives() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMotives(s.motives)
}

func (s *State) Setup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setup
}

func (s *State) SetSetup(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setup = v
}

func (s *State) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *State) SetStarted(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = v
}

func (s *State) Automatic() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.automatic
}

func (s *State) SetAutomatic(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automatic = v
}

func (s *State) ShowTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showTimer
}

func (s *State) SetShowTimer(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTimer = v
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		GuildID:   s.GuildID,
		Setup:     s.setup,
		Started:   s.started,
		Automatic: s.automatic,
		ShowTimer: s.showTimer,
		Motives:   copyMotives(s.motives),
	}
}

// ActivePlayers returns the character roles that currently have at least one
// member, sorted by role name. It reads the guild on every call.
func (s *State) ActivePlayers(ctx context.Context, dir guild.Directory) ([]Player, error) {
	roles, err := dir.Roles(ctx, s.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	members, err := dir.Members(ctx, s.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	held := map[string]int{}
	for _, m := range members {
		for _, id := range m.Roles {
			held[id]++
		}
	}

	var players []Player
	for _, r := range roles {
		if gamedata.IsCharacter(r.Name) && held[r.ID] > 0 {
			players = append(players, Player{Name: r.Name, Role: r})
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	return players, nil
}

func copyMotives(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
