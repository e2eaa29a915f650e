package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound is wrapped by operations targeting a missing row.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string

	mu           sync.Mutex
	sessionLocks map[int64]*sync.Mutex
}

// lockSession returns the append lock for one session. Point appends
// hold it so the count/last-point reads and the insert are linearizable
// per session; appends to different sessions proceed independently.
func (d *DB) lockSession(sessionID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.sessionLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		d.sessionLocks[sessionID] = l
	}
	return l
}

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled,
// creating the file and its schema if needed. The pragmas ride in the
// DSN so the driver applies them to every connection in the pool; a
// plain Exec would configure only whichever connection served it,
// leaving cascade deletes unenforced on the rest.
func OpenDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &DB{conn: conn, Path: path, sessionLocks: make(map[int64]*sync.Mutex)}
	if err := d.initialize(); err != nil {
		conn.Close()
		return nil, err
	}

	return d, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}
