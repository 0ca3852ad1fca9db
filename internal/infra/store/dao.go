package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

// DAO provides data access operations for the deck store.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

// SaveTracklist replaces the stored program with the given tracklist.
// Tracks without an ID get one minted, and the returned tracklist carries
// the minted IDs so callers hold the canonical copy.
func (dao *DAO) SaveTracklist(tl tape.Tracklist) (tape.Tracklist, error) {
	db := dao.db.DB()
	if db == nil {
		return tl, fmt.Errorf("database not open")
	}

	tx, err := db.Begin()
	if err != nil {
		return tl, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tracks"); err != nil {
		return tl, err
	}

	for _, side := range []tape.Side{tape.SideA, tape.SideB} {
		tracks := tl.Tracks(side)
		for i := range tracks {
			if tracks[i].ID == "" {
				tracks[i].ID = uuid.New().String()
			}
			_, err := tx.Exec(`
				INSERT INTO tracks (id, side, position, title, duration)
				VALUES (?, ?, ?, ?, ?)
			`, tracks[i].ID, side.String(), i, tracks[i].Title, tracks[i].Duration)
			if err != nil {
				return tl, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return tl, err
	}
	return tl, nil
}

// LoadTracklist reads the stored program. An empty store yields an empty
// tracklist, not an error.
func (dao *DAO) LoadTracklist() (tape.Tracklist, error) {
	var tl tape.Tracklist

	db := dao.db.DB()
	if db == nil {
		return tl, fmt.Errorf("database not open")
	}

	rows, err := db.Query(`
		SELECT id, side, title, duration FROM tracks ORDER BY side, position
	`)
	if err != nil {
		return tl, err
	}
	defer rows.Close()

	for rows.Next() {
		var t tape.Track
		var side string
		if err := rows.Scan(&t.ID, &side, &t.Title, &t.Duration); err != nil {
			return tl, err
		}
		if s, ok := tape.ParseSide(side); ok && s == tape.SideB {
			tl.SideB = append(tl.SideB, t)
		} else {
			tl.SideA = append(tl.SideA, t)
		}
	}
	return tl, rows.Err()
}

// SaveSnapshot stores a named transport snapshot for later restore.
func (dao *DAO) SaveSnapshot(name string, snap deck.Snapshot) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	_, err := db.Exec(`
		INSERT INTO snapshots (name, mode, side, side_a_progress, side_b_progress, saved_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			mode = ?, side = ?, side_a_progress = ?, side_b_progress = ?,
			saved_at = CURRENT_TIMESTAMP
	`,
		name, int(snap.Mode), snap.Side.String(), snap.SideAProgress, snap.SideBProgress,
		int(snap.Mode), snap.Side.String(), snap.SideAProgress, snap.SideBProgress,
	)
	return err
}

// LoadSnapshot retrieves a named snapshot. Returns nil when the name is
// unknown.
func (dao *DAO) LoadSnapshot(name string) (*deck.Snapshot, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	var snap deck.Snapshot
	var mode int
	var side string
	err := db.QueryRow(`
		SELECT mode, side, side_a_progress, side_b_progress
		FROM snapshots WHERE name = ?
	`, name).Scan(&mode, &side, &snap.SideAProgress, &snap.SideBProgress)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap.Mode = deck.Mode(mode)
	if s, ok := tape.ParseSide(side); ok {
		snap.Side = s
	}
	return &snap, nil
}
