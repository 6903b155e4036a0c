// Package archive keeps past session exports in a local sqlite database.
package archive

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"lukechampine.com/blake3"

	"github.com/leonardotrapani/hyprscribe/internal/export"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

var ErrNotFound = errors.New("archived session not found")

const schema = `
create table if not exists sessions (
	id integer primary key autoincrement,
	blake3_hash text not null unique,
	exported_at text not null,
	speakers integer not null,
	segments integer not null,
	notes integer not null,
	summary text not null default '',
	document blob not null,
	archived_at text not null
);`

// Entry describes one archived export without its document.
type Entry struct {
	ID         int64
	Hash       string
	ExportedAt string
	Speakers   int
	Segments   int
	Notes      int
	Summary    string
	ArchivedAt time.Time
}

type Archive struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open creates the database file and its parent directory if needed.
func Open(ctx context.Context, path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	return &Archive{db: db, logger: logging.WithComponent("archive"), now: time.Now}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Hash returns the hex blake3 digest of the export's JSON document.
func Hash(doc []byte) string {
	sum := blake3.Sum256(doc)
	return hex.EncodeToString(sum[:])
}

// Save stores exp and returns its hash. Saving an identical export again is a no-op
// that returns created=false.
func (a *Archive) Save(ctx context.Context, exp export.SessionExport, summary string) (hash string, created bool, err error) {
	doc, err := export.Marshal(exp)
	if err != nil {
		return "", false, err
	}
	hash = Hash(doc)

	res, err := a.db.ExecContext(ctx, `
		insert into sessions (blake3_hash, exported_at, speakers, segments, notes, summary, document, archived_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (blake3_hash) do nothing`,
		hash,
		exp.Metadata.ExportedAt,
		len(exp.Speakers),
		len(exp.Transcript),
		len(exp.Notes),
		summary,
		doc,
		a.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", false, fmt.Errorf("archive session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("archive session: %w", err)
	}
	created = n > 0

	a.logger.Info().Str("hash", hash[:12]).Bool("created", created).Msg("session archived")
	return hash, created, nil
}

// List returns archived sessions, newest first.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
		select id, blake3_hash, exported_at, speakers, segments, notes, summary, archived_at
		from sessions
		order by id desc`)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var archivedAt string
		if err := rows.Scan(&e.ID, &e.Hash, &e.ExportedAt, &e.Speakers, &e.Segments, &e.Notes, &e.Summary, &archivedAt); err != nil {
			return nil, fmt.Errorf("list archive: %w", err)
		}
		e.ArchivedAt, _ = time.Parse(time.RFC3339, archivedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	return entries, nil
}

// Get returns the export stored under hash.
func (a *Archive) Get(ctx context.Context, hash string) (export.SessionExport, error) {
	var doc []byte
	err := a.db.QueryRowContext(ctx, "select document from sessions where blake3_hash = $1", hash).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return export.SessionExport{}, ErrNotFound
	}
	if err != nil {
		return export.SessionExport{}, fmt.Errorf("get archived session: %w", err)
	}
	return export.Unmarshal(doc)
}
