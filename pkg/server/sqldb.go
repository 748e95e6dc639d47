package server

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLStore manages a SQLite3 database connection for softcode SQL access.
type SQLStore struct {
	db         *sql.DB
	mu         sync.Mutex
	path       string
	queryLimit int
	timeout    time.Duration
}

// OpenSQLStore opens a SQLite3 database, sets WAL mode and busy timeout.
func OpenSQLStore(path string, queryLimit, timeoutSec int) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// Set WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	// Set busy timeout (milliseconds)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeoutSec*1000)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	return &SQLStore{
		db:         db,
		path:       path,
		queryLimit: queryLimit,
		timeout:    time.Duration(timeoutSec) * time.Second,
	}, nil
}

// Close closes the SQLite3 database connection.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the SQLite database.
func (s *SQLStore) Path() string { return s.path }

// Checkpoint forces a WAL checkpoint to flush all writes to the main database file.
func (s *SQLStore) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("SQL NOT CONFIGURED")
	}
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Query executes a SQL query and returns results as delimited text.
// SELECT queries return rows delimited by rowDelim with fields separated by fieldDelim.
// Non-SELECT queries return the number of affected rows.
func (s *SQLStore) Query(query, rowDelim, fieldDelim string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return "", fmt.Errorf("SQL NOT CONFIGURED")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)

	// Non-SELECT statements (INSERT, UPDATE, DELETE, CREATE, DROP, ALTER, etc.)
	if !strings.HasPrefix(upper, "SELECT") {
		result, err := s.db.ExecContext(ctx, trimmed)
		if err != nil {
			return "", err
		}
		affected, _ := result.RowsAffected()
		return fmt.Sprintf("%d", affected), nil
	}

	// SELECT query
	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	numCols := len(cols)

	var resultRows []string
	rowCount := 0

	for rows.Next() {
		if rowCount >= s.queryLimit {
			break
		}
		// Create a slice of interface{} to scan into
		values := make([]interface{}, numCols)
		ptrs := make([]interface{}, numCols)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}

		// Convert to strings
		fields := make([]string, numCols)
		for i, v := range values {
			if v == nil {
				fields[i] = ""
			} else {
				fields[i] = fmt.Sprintf("%v", v)
			}
		}
		resultRows = append(resultRows, strings.Join(fields, fieldDelim))
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return strings.Join(resultRows, rowDelim), nil
}

// --- Scrollback storage ---

// ScrollbackMessage is one stored channel or room message.
type ScrollbackMessage struct {
	Channel    string    `json:"channel"`
	Sender     int       `json:"sender"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// PersonalScrollbackEntry is one client-encrypted scrollback blob. The
// server never sees the plaintext; clients encrypt before upload.
type PersonalScrollbackEntry struct {
	EncryptedData []byte    `json:"encrypted_data"`
	IV            []byte    `json:"iv"`
	CreatedAt     time.Time `json:"created_at"`
}

// InitScrollbackTables creates the scrollback tables if missing.
func (s *SQLStore) InitScrollbackTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("SQL NOT CONFIGURED")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scrollback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT NOT NULL,
			sender INTEGER NOT NULL,
			sender_name TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scrollback_channel
			ON scrollback(channel, created_at)`,
		`CREATE TABLE IF NOT EXISTS personal_scrollback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player INTEGER NOT NULL,
			encrypted_data BLOB NOT NULL,
			iv BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_personal_scrollback_player
			ON personal_scrollback(player, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertScrollback stores one channel message.
func (s *SQLStore) InsertScrollback(channel string, sender int, senderName, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("SQL NOT CONFIGURED")
	}
	_, err := s.db.Exec(
		"INSERT INTO scrollback (channel, sender, sender_name, message, created_at) VALUES (?, ?, ?, ?, ?)",
		channel, sender, senderName, message, time.Now().Unix())
	return err
}

// GetScrollback returns up to limit messages for a channel since a time,
// oldest first.
func (s *SQLStore) GetScrollback(channel string, since time.Time, limit int) ([]ScrollbackMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("SQL NOT CONFIGURED")
	}
	rows, err := s.db.Query(
		"SELECT channel, sender, sender_name, message, created_at FROM scrollback WHERE channel = ? AND created_at >= ? ORDER BY created_at ASC LIMIT ?",
		channel, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScrollbackMessage
	for rows.Next() {
		var m ScrollbackMessage
		var created int64
		if err := rows.Scan(&m.Channel, &m.Sender, &m.SenderName, &m.Message, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(created, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// PurgeOldScrollback deletes channel messages older than the retention
// window, returning the number removed.
func (s *SQLStore) PurgeOldScrollback(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("SQL NOT CONFIGURED")
	}
	cutoff := time.Now().Add(-retention).Unix()
	res, err := s.db.Exec("DELETE FROM scrollback WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertPersonalScrollback stores one client-encrypted blob for a player.
func (s *SQLStore) InsertPersonalScrollback(player int, data, iv []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("SQL NOT CONFIGURED")
	}
	_, err := s.db.Exec(
		"INSERT INTO personal_scrollback (player, encrypted_data, iv, created_at) VALUES (?, ?, ?, ?)",
		player, data, iv, time.Now().Unix())
	return err
}

// GetPersonalScrollback returns a player's encrypted entries since a
// time, oldest first.
func (s *SQLStore) GetPersonalScrollback(player int, since time.Time, limit int) ([]PersonalScrollbackEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("SQL NOT CONFIGURED")
	}
	rows, err := s.db.Query(
		"SELECT encrypted_data, iv, created_at FROM personal_scrollback WHERE player = ? AND created_at >= ? ORDER BY created_at ASC LIMIT ?",
		player, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PersonalScrollbackEntry
	for rows.Next() {
		var e PersonalScrollbackEntry
		var created int64
		if err := rows.Scan(&e.EncryptedData, &e.IV, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOldPersonalScrollback deletes encrypted entries older than the
// retention window.
func (s *SQLStore) PurgeOldPersonalScrollback(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("SQL NOT CONFIGURED")
	}
	cutoff := time.Now().Add(-retention).Unix()
	res, err := s.db.Exec("DELETE FROM personal_scrollback WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Escape doubles single quotes in the input string for safe SQL interpolation.
func (s *SQLStore) Escape(input string) string {
	return strings.ReplaceAll(input, "'", "''")
}

// Reconnect closes and reopens the database connection.
func (s *SQLStore) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		s.db = nil
		return fmt.Errorf("reconnecting sqlite %s: %w", s.path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		s.db = nil
		return fmt.Errorf("setting WAL mode on reconnect: %w", err)
	}
	timeoutMs := int(s.timeout.Milliseconds())
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeoutMs)); err != nil {
		db.Close()
		s.db = nil
		return fmt.Errorf("setting busy timeout on reconnect: %w", err)
	}

	s.db = db
	return nil
}
