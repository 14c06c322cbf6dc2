// Package storage persists graphs as binary snapshots and maintains a
// disposable SQLite search index.
package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/matsen/atlas/internal/graph"
)

// Snapshot file layout:
//
//	[4 bytes magic "ATLS"]
//	[1 byte format version]
//	[32 bytes BLAKE3-256 of the compressed payload]
//	[zstd-compressed gob payload]
const (
	snapshotMagic   = "ATLS"
	snapshotVersion = 1
	checksumSize    = 32
	headerSize      = len(snapshotMagic) + 1 + checksumSize
)

// SnapshotFile is the snapshot name inside the data directory.
const SnapshotFile = "graph.snap"

// Errors returned when reading snapshots.
var (
	ErrNoSnapshot      = errors.New("no snapshot found")
	ErrCorruptSnapshot = errors.New("snapshot is corrupt")
)

// payload is the gob-encoded body. Node and edge order is insertion order.
type payload struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

// SaveSnapshot writes g to path atomically. On failure the previous snapshot,
// if any, is left in place.
func SaveSnapshot(path string, g *graph.Graph) error {
	data, err := EncodeSnapshot(g)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// LoadSnapshot reads the graph stored at path.
func LoadSnapshot(path string, opts ...graph.Option) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, path)
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return DecodeSnapshot(data, opts...)
}

// EncodeSnapshot serializes g into the snapshot format.
func EncodeSnapshot(g *graph.Graph) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(payload{Nodes: g.Nodes(), Edges: g.Edges()}); err != nil {
		return nil, fmt.Errorf("encoding graph: %w", err)
	}

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(raw.Bytes()); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	sum := blake3.Sum256(compressed.Bytes())

	out := make([]byte, 0, headerSize+compressed.Len())
	out = append(out, snapshotMagic...)
	out = append(out, snapshotVersion)
	out = append(out, sum[:]...)
	out = append(out, compressed.Bytes()...)
	return out, nil
}

// DecodeSnapshot parses snapshot bytes back into a graph.
func DecodeSnapshot(data []byte, opts ...graph.Option) (*graph.Graph, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptSnapshot, len(data))
	}
	if string(data[:len(snapshotMagic)]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSnapshot)
	}
	if v := data[len(snapshotMagic)]; v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}

	want := data[len(snapshotMagic)+1 : headerSize]
	body := data[headerSize:]
	got := blake3.Sum256(body)
	if !bytes.Equal(got[:], want) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	decoder, err := zstd.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %v", ErrCorruptSnapshot, err)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrCorruptSnapshot, err)
	}

	g, err := graph.FromParts(p.Nodes, p.Edges, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return g, nil
}

// BackupPath returns where Backup writes a backup named name next to path.
func BackupPath(path, name string) string {
	if name == "" {
		name = "latest"
	}
	return filepath.Join(filepath.Dir(path), "graph_backup_"+name+".snap")
}

// Backup copies the snapshot at path to a named backup in the same directory
// and returns the backup path.
func Backup(path, name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoSnapshot, path)
		}
		return "", fmt.Errorf("reading snapshot: %w", err)
	}

	dest := BackupPath(path, name)
	if err := writeFileAtomic(dest, data); err != nil {
		return "", err
	}
	return dest, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
