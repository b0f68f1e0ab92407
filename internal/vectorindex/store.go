package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"secureshield-assistant/internal/models"
)

// Store persists an index and its chunk texts as one unit.
type Store interface {
	Save(ctx context.Context, idx *Index) error
	// Load returns models.ErrSnapshotMissing when nothing was saved yet and
	// models.ErrSnapshotCorrupt when the saved pair does not line up.
	Load(ctx context.Context) (*Index, error)
}

// Metadata is the JSON record saved next to the index blob.
type Metadata struct {
	Dimension  int      `json:"dimension"`
	Count      int      `json:"count"`
	ChunkTexts []string `json:"chunkTexts"`
	// Checksum is the SHA-256 of the blob saved with this record. Empty
	// when the pair is stored atomically elsewhere.
	Checksum string `json:"checksum,omitempty"`
}

// Metadata returns the record describing idx.
func (idx *Index) Metadata() Metadata {
	return Metadata{Dimension: idx.flat.Dim(), Count: len(idx.texts), ChunkTexts: idx.texts}
}

// BlobChecksum returns the hex SHA-256 recorded in Metadata.Checksum.
func BlobChecksum(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// Assemble rebuilds an index from a decoded blob and its metadata record,
// checking that they describe the same vectors.
func Assemble(blob []byte, meta Metadata) (*Index, error) {
	if meta.Checksum != "" && meta.Checksum != BlobChecksum(blob) {
		return nil, fmt.Errorf("%w: index blob does not match metadata checksum", models.ErrSnapshotCorrupt)
	}
	var flat Flat
	if err := flat.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSnapshotCorrupt, err)
	}
	if flat.Dim() != meta.Dimension || flat.Len() != meta.Count || len(meta.ChunkTexts) != meta.Count {
		return nil, fmt.Errorf("%w: blob has %d vectors of dimension %d, metadata has %d/%d texts of dimension %d",
			models.ErrSnapshotCorrupt, flat.Len(), flat.Dim(), meta.Count, len(meta.ChunkTexts), meta.Dimension)
	}
	return New(&flat, meta.ChunkTexts)
}

// FileStore keeps the index blob and its metadata as two sibling files.
type FileStore struct {
	IndexPath string
	MetaPath  string
}

// NewFileStore creates a store for the given pair of paths.
func NewFileStore(indexPath, metaPath string) *FileStore {
	return &FileStore{IndexPath: indexPath, MetaPath: metaPath}
}

// Save writes both files through temporary siblings and renames them into
// place, metadata last.
func (s *FileStore) Save(_ context.Context, idx *Index) error {
	blob, err := idx.flat.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	record := idx.Metadata()
	record.Checksum = BlobChecksum(blob)
	meta, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for _, p := range []string{s.IndexPath, s.MetaPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(p), err)
		}
	}
	if err := writeAtomic(s.IndexPath, blob); err != nil {
		return err
	}
	return writeAtomic(s.MetaPath, meta)
}

// Load reads the pair back.
func (s *FileStore) Load(_ context.Context) (*Index, error) {
	blob, err := readSnapshotFile(s.IndexPath)
	if err != nil {
		return nil, err
	}
	raw, err := readSnapshotFile(s.MetaPath)
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrSnapshotCorrupt, s.MetaPath, err)
	}
	return Assemble(blob, meta)
}

func readSnapshotFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrSnapshotMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
