package store

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

// Library holds the live tracklist, backed by the DAO. It implements the
// transport engine's TracklistProvider: the engine reads the current
// program every tick, and a wholesale replace here is visible on the
// next tick.
type Library struct {
	mu      sync.RWMutex
	dao     *DAO
	current tape.Tracklist
}

// NewLibrary creates a library around the DAO.
func NewLibrary(dao *DAO) *Library {
	return &Library{dao: dao}
}

// Load pulls the stored program into memory. Called once at startup.
func (l *Library) Load() error {
	tl, err := l.dao.LoadTracklist()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.current = tl
	l.mu.Unlock()

	log.Info().
		Int("side_a_tracks", len(tl.SideA)).
		Int("side_b_tracks", len(tl.SideB)).
		Str("label", tl.Label()).
		Msg("Program loaded")
	return nil
}

// Tracklist returns the current program.
func (l *Library) Tracklist() tape.Tracklist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Replace swaps in a new program, persisting it and minting IDs for new
// tracks. The stored copy and the in-memory copy change together.
func (l *Library) Replace(tl tape.Tracklist) (tape.Tracklist, error) {
	saved, err := l.dao.SaveTracklist(tl)
	if err != nil {
		return tl, err
	}

	l.mu.Lock()
	l.current = saved
	l.mu.Unlock()

	log.Info().
		Int("side_a_tracks", len(saved.SideA)).
		Int("side_b_tracks", len(saved.SideB)).
		Str("label", saved.Label()).
		Msg("Program replaced")
	return saved, nil
}
