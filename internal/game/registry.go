package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Registry owns one State per guild.
type Registry struct {
	states  map[string]*State
	newRand func() *rand.Rand
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry whose states draw motives from
// crypto-seeded generators.
func NewRegistry() *Registry {
	return NewRegistryWithRand(newSeededRand)
}

// NewRegistryWithRand creates a registry using newRand for each new state.
func NewRegistryWithRand(newRand func() *rand.Rand) *Registry {
	return &Registry{
		states:  make(map[string]*State),
		newRand: newRand,
	}
}

// Get returns the guild's state, creating it on first use.
func (r *Registry) Get(guildID string) *State {
	r.mu.RLock()
	s, ok := r.states[guildID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[guildID]; ok {
		return s
	}
	s = New(guildID, r.newRand())
	r.states[guildID] = s
	return s
}

// Lookup returns the guild's state without creating it.
func (r *Registry) Lookup(guildID string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[guildID]
	return s, ok
}

// Evict drops the guild's state, e.g. when the bot leaves the guild.
func (r *Registry) Evict(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, guildID)
}

// Len returns the number of tracked guilds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

func newSeededRand() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}
