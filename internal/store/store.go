// Package store persists acquisition sessions and their range-image frames
// in SQLite. Recorded sessions double as the input for replay.
package store

import (
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/corten-vision/range.view/internal/rangeimage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite handle.
type Store struct {
	*sql.DB
}

// Session is one recording run.
type Session struct {
	ID        string
	Source    string
	Notes     string
	StartedAt time.Time
	EndedAt   *time.Time
	Frames    int
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("initialized frame store schema")
	return s, nil
}

// migrateUp applies all pending embedded migrations.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// StartSession creates a new session row and returns its ID.
func (s *Store) StartSession(source, notes string) (string, error) {
	id := uuid.NewString()
	_, err := s.Exec(`INSERT INTO sessions (session_id, source, notes) VALUES (?, ?, ?)`,
		id, source, notes)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %v", err)
	}
	return id, nil
}

// EndSession marks a session as finished.
func (s *Store) EndSession(id string) error {
	res, err := s.Exec(`UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no session %q", id)
	}
	return nil
}

// RecordFrame stores one component under a session, with the surviving
// point count for quick session statistics.
func (s *Store) RecordFrame(sessionID string, c *rangeimage.Component, pointCount int) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("refusing to record malformed frame: %w", err)
	}
	_, err := s.Exec(`
		INSERT INTO frames (session_id, frame_id, captured_ns, width, height,
			offset_x, offset_y, offset_z, scale_x, scale_y, scale_z,
			raw_grid, point_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, c.FrameID, c.Captured.UnixNano(), c.Width, c.Height,
		c.OffsetX, c.OffsetY, c.OffsetZ, c.ScaleX, c.ScaleY, c.ScaleZ,
		encodeGrid(c.Raw), pointCount)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %v", err)
	}
	return nil
}

// Sessions lists recorded sessions, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.Query(`
		SELECT s.session_id, s.source, COALESCE(s.notes, ''), s.started_at, s.ended_at,
		       COUNT(f.frame_pk)
		FROM sessions s
		LEFT JOIN frames f ON f.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %v", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Source, &sess.Notes,
			&sess.StartedAt, &ended, &sess.Frames); err != nil {
			return nil, fmt.Errorf("failed to scan session: %v", err)
		}
		if ended.Valid {
			t := ended.Time
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SessionFrames streams a session's frames in capture order through fn.
// Iteration stops at the first error from fn.
func (s *Store) SessionFrames(sessionID string, fn func(*rangeimage.Component) error) error {
	rows, err := s.Query(`
		SELECT frame_id, captured_ns, width, height,
		       offset_x, offset_y, offset_z, scale_x, scale_y, scale_z, raw_grid
		FROM frames WHERE session_id = ? ORDER BY captured_ns, frame_pk`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to query frames: %v", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var c rangeimage.Component
		var capturedNs int64
		var blob []byte
		if err := rows.Scan(&c.FrameID, &capturedNs, &c.Width, &c.Height,
			&c.OffsetX, &c.OffsetY, &c.OffsetZ,
			&c.ScaleX, &c.ScaleY, &c.ScaleZ, &blob); err != nil {
			return fmt.Errorf("failed to scan frame: %v", err)
		}
		c.Captured = time.Unix(0, capturedNs).UTC()
		c.Raw, err = decodeGrid(blob, c.Width, c.Height)
		if err != nil {
			return fmt.Errorf("frame %d: %w", c.FrameID, err)
		}
		if err := fn(&c); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %q has no frames", sessionID)
	}
	return nil
}

// encodeGrid packs raw samples as little-endian uint16 bytes, the same
// layout the wire format uses.
func encodeGrid(raw []uint16) []byte {
	buf := make([]byte, len(raw)*2)
	for i, v := range raw {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

func decodeGrid(blob []byte, width, height int) ([]uint16, error) {
	if len(blob) != width*height*2 {
		return nil, fmt.Errorf("grid blob is %d bytes, want %d for %dx%d",
			len(blob), width*height*2, width, height)
	}
	raw := make([]uint16, width*height)
	for i := range raw {
		raw[i] = binary.LittleEndian.Uint16(blob[i*2:])
	}
	return raw, nil
}
