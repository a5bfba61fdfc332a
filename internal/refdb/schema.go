package refdb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/OneOfOne/xxhash"

	"jingleid/internal/fingerprint"
)

//go:embed schema.sql
var schemaSQL string

const (
	// checkpointFormatVersion is the leading version tag. Bump it when the
	// schema or the blob encoding changes.
	checkpointFormatVersion = 1
	// checkpointIntWidth is the width in bits of each stored fingerprint value.
	checkpointIntWidth  = 32
	checkpointGenerator = "jingleid"
)

// openDB opens the SQLite file at path. The path is passed as an escaped
// file: URI so '?' and '#' stay part of the file name.
func openDB(path string) (*sql.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	dsn := (&url.URL{Scheme: "file", Path: slashed}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return db, nil
}

func createSchema(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func hasMetaTable(ctx context.Context, db *sql.DB) (bool, error) {
	var tableExists int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='checkpoint_meta'",
	).Scan(&tableExists)
	if err != nil {
		return false, err
	}
	return tableExists > 0, nil
}

// encodeValues stores fingerprint values as little-endian int32.
func encodeValues(values []int32) []byte {
	buf := make([]byte, 0, len(values)*checkpointIntWidth/8)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

func decodeValues(data []byte) []int32 {
	values := make([]int32, len(data)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return values
}

// checksum fits xxhash64 into a signed SQLite INTEGER.
func checksum(data []byte) int64 {
	return int64(xxhash.Checksum64(data))
}

func scanParams(row *sql.Row) (fingerprint.Params, error) {
	var p fingerprint.Params
	err := row.Scan(&p.ChunkLengthMS, &p.FFTSize, &p.FFTBinStart, &p.FFTBinEnd, &p.FFTBinStep, &p.PartitionSize)
	return p, err
}
