package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
)

// ErrTileNotFound is returned by ReadTile for missing tiles.
var ErrTileNotFound = errors.New("tile not found")

// Reader reads tiles from an MBTiles database.
type Reader struct {
	db *sql.DB
}

// OpenReader opens an existing MBTiles database read-only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = 'tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, errors.New("database does not contain a tiles table")
	}

	return &Reader{db: db}, nil
}

// Tile is a decoded tile blob.
type Tile struct {
	ID   TileID
	Data []byte
	// Gzipped reports whether the stored blob was gzip-compressed.
	Gzipped bool
}

// Tiles lists every tile in the database, ordered by zoom, column, row.
func (r *Reader) Tiles() ([]TileID, error) {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row FROM tiles ORDER BY zoom_level, tile_column, tile_row")
	if err != nil {
		return nil, fmt.Errorf("failed to list tiles: %w", err)
	}
	defer rows.Close()

	var ids []TileID
	for rows.Next() {
		var id TileID
		if err := rows.Scan(&id.Z, &id.X, &id.Y); err != nil {
			return nil, fmt.Errorf("failed to scan tile row: %w", err)
		}
		id.Y = id.tmsRow()
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tiles: %w", err)
	}
	return ids, nil
}

// ReadTile returns the tile at id, decompressing gzip blobs.
func (r *Reader) ReadTile(id TileID) (Tile, error) {
	var blob []byte
	err := r.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		id.Z, id.X, id.tmsRow(),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Tile{}, fmt.Errorf("%w: %s", ErrTileNotFound, id)
	}
	if err != nil {
		return Tile{}, fmt.Errorf("failed to query tile %s: %w", id, err)
	}

	t := Tile{ID: id, Data: blob}
	if isGzip(blob) {
		if t.Data, err = gzipDecompress(blob); err != nil {
			return Tile{}, fmt.Errorf("failed to decompress tile %s: %w", id, err)
		}
		t.Gzipped = true
	}
	return t, nil
}

// Metadata reads all metadata rows.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		entries[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	return metadataFromMap(entries), nil
}

// Close closes the database.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
