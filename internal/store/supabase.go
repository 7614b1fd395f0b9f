package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// SupabaseStore uploads outcome records as JSON documents to a Supabase
// storage bucket, one object per call, prefixed by outcome category so
// billing staff can browse by result.
type SupabaseStore struct {
	client *supabase.Client
	bucket string
}

func NewSupabase(cfg Config) (*SupabaseStore, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *SupabaseStore) Save(_ context.Context, rec record.OutcomeRecord) error {
	data, err := rec.JSON()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	key := ObjectKey(rec)
	if _, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// ObjectKey names a record object: <category>/<endedAt>_<callID>.json.
// Timestamp first within the prefix so listings sort chronologically.
func ObjectKey(rec record.OutcomeRecord) string {
	return fmt.Sprintf("%s/%s_%s.json", rec.Category, rec.EndedAt.UTC().Format("20060102T150405Z"), rec.CallID)
}
