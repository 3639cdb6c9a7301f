// Package history stores the addresses last published for each domain in a SQLite database.
// A *Store satisfies ddns.Cache.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/netip"
	"slices"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS published (
	domain       TEXT    NOT NULL,
	addr         TEXT    NOT NULL,
	published_at INTEGER NOT NULL,
	PRIMARY KEY (domain, addr)
);`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// a single connection serializes writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Published returns the addresses last recorded for domain, sorted,
// and when they were recorded. The time is zero when nothing was recorded.
func (s *Store) Published(ctx context.Context, domain string) ([]netip.Addr, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT addr, published_at FROM published WHERE domain = ?`, domain)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var addrs []netip.Addr
	var latest int64
	for rows.Next() {
		var raw string
		var at int64
		if err := rows.Scan(&raw, &at); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan history: %w", err)
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("parse stored address %q: %w", raw, err)
		}
		addrs = append(addrs, a)
		latest = max(latest, at)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("read history: %w", err)
	}
	if len(addrs) == 0 {
		return nil, time.Time{}, nil
	}
	slices.SortFunc(addrs, netip.Addr.Compare)
	return addrs, time.Unix(latest, 0), nil
}

// Unchanged reports whether addrs, in any order, equal the addresses last recorded for domain.
func (s *Store) Unchanged(ctx context.Context, domain string, addrs []netip.Addr) (bool, error) {
	prev, _, err := s.Published(ctx, domain)
	if err != nil {
		return false, err
	}
	if len(prev) == 0 {
		return false, nil
	}
	return slices.Equal(prev, normalize(addrs)), nil
}

// Remember replaces the recorded addresses for domain.
func (s *Store) Remember(ctx context.Context, domain string, addrs []netip.Addr) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM published WHERE domain = ?`, domain); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	at := s.now().Unix()
	for _, a := range normalize(addrs) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO published (domain, addr, published_at) VALUES (?, ?, ?)`, domain, a.String(), at); err != nil {
			return fmt.Errorf("record %s: %w", a, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history update: %w", err)
	}
	return nil
}

// normalize unmaps, sorts and deduplicates addrs without modifying the input.
func normalize(addrs []netip.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Unmap())
	}
	slices.SortFunc(out, netip.Addr.Compare)
	return slices.Compact(out)
}
