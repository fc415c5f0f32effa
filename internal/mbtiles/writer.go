package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of tiles buffered before a transaction is committed.
const DefaultBatchSize = 100

// WriterOptions configures a Writer.
type WriterOptions struct {
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// Gzip compresses blobs written with WriteTile.
	Gzip bool
}

type pending struct {
	id   TileID
	data []byte
	gzip bool
}

// Writer writes tiles to an MBTiles database. It is safe for concurrent use.
type Writer struct {
	db    *sql.DB
	opts  WriterOptions
	batch []pending
	mu    sync.Mutex
}

// Create opens or creates the database at path, initializes the schema and
// replaces its metadata.
func Create(path string, meta Metadata, opts WriterOptions) (*Writer, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	w := &Writer{
		db:    db,
		opts:  opts,
		batch: make([]pending, 0, opts.BatchSize),
	}
	if err := w.replaceMetadata(meta.ToMap()); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS metadata (
		name TEXT NOT NULL,
		value TEXT
	);

	CREATE TABLE IF NOT EXISTS tiles (
		zoom_level INTEGER NOT NULL,
		tile_column INTEGER NOT NULL,
		tile_row INTEGER NOT NULL,
		tile_data BLOB NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
`

func (w *Writer) replaceMetadata(rows map[string]string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for k, v := range rows {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

// SetMetadata upserts a single metadata entry.
func (w *Writer) SetMetadata(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata WHERE name = ?", key); err != nil {
		return fmt.Errorf("failed to update metadata %q: %w", key, err)
	}
	if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("failed to update metadata %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

// WriteTile queues a tile and flushes once the batch is full. The blob is
// compressed when WriterOptions.Gzip is set.
func (w *Writer) WriteTile(id TileID, data []byte) error {
	return w.WriteTileAs(id, data, w.opts.Gzip)
}

// WriteTileAs is WriteTile with the compression chosen per tile.
func (w *Writer) WriteTileAs(id TileID, data []byte, gz bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, pending{id: id, data: data, gzip: gz})
	if len(w.batch) >= w.opts.BatchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush commits all queued tiles.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range w.batch {
		blob := p.data
		if p.gzip {
			if blob, err = gzipCompress(p.data); err != nil {
				return fmt.Errorf("failed to compress tile %s: %w", p.id, err)
			}
		}
		if _, err := stmt.Exec(p.id.Z, p.id.X, p.id.tmsRow(), blob); err != nil {
			return fmt.Errorf("failed to insert tile %s: %w", p.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tiles: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes queued tiles and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
