package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// DirStore writes outcome records to the local filesystem with the same
// category/timestamp layout as the bucket store. Used in development and as
// a fallback when no bucket is configured.
type DirStore struct {
	root string
}

func NewDir(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Save(_ context.Context, rec record.OutcomeRecord) error {
	data, err := rec.JSON()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	path := filepath.Join(s.root, filepath.FromSlash(ObjectKey(rec)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
