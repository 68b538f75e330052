package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// Store is the client-local persistence layer: the bearer token that gates
// auto-connect at startup, and cached conversation previews so the list can
// render before the first REST round trip.
type Store struct {
	conn *sql.DB
}

func New(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS previews (
			kind TEXT NOT NULL,
			peer_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			msg_type INTEGER NOT NULL DEFAULT 0,
			last_time TEXT NOT NULL DEFAULT '',
			unread INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (kind, peer_id)
		)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("init store: %w", err)
		}
	}

	return nil
}

// SaveToken stores the bearer token, replacing any previous one.
func (s *Store) SaveToken(token string) error {
	_, err := s.conn.Exec(
		`INSERT INTO credentials (id, token, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		token, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, ErrNotFound when none was saved.
func (s *Store) Token() (string, error) {
	var token string
	err := s.conn.QueryRow(`SELECT token FROM credentials WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// DeleteToken drops the stored credential on logout.
func (s *Store) DeleteToken() error {
	_, err := s.conn.Exec(`DELETE FROM credentials WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Preview is one cached conversation-list row.
type Preview struct {
	Kind     string
	PeerId   int
	Name     string
	Avatar   string
	Content  string
	MsgType  int
	LastTime time.Time
	Unread   int
}

// SavePreviews replaces the cached conversation list.
func (s *Store) SavePreviews(previews []Preview) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM previews`); err != nil {
		return fmt.Errorf("clear previews: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO previews (kind, peer_id, name, avatar, content, msg_type, last_time, unread)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range previews {
		var lastTime string
		if !p.LastTime.IsZero() {
			lastTime = p.LastTime.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.Exec(p.Kind, p.PeerId, p.Name, p.Avatar, p.Content, p.MsgType, lastTime, p.Unread); err != nil {
			return fmt.Errorf("insert preview: %w", err)
		}
	}

	return tx.Commit()
}

// Previews returns the cached conversation list, most recent first.
func (s *Store) Previews() ([]Preview, error) {
	rows, err := s.conn.Query(
		`SELECT kind, peer_id, name, avatar, content, msg_type, last_time, unread
		 FROM previews ORDER BY last_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("load previews: %w", err)
	}
	defer rows.Close()

	var previews []Preview
	for rows.Next() {
		var p Preview
		var lastTime string
		if err := rows.Scan(&p.Kind, &p.PeerId, &p.Name, &p.Avatar, &p.Content, &p.MsgType, &lastTime, &p.Unread); err != nil {
			return nil, fmt.Errorf("scan preview: %w", err)
		}
		if lastTime != "" {
			if t, err := time.Parse(time.RFC3339Nano, lastTime); err == nil {
				p.LastTime = t
			}
		}
		previews = append(previews, p)
	}

	return previews, rows.Err()
}
