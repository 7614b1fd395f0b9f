package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

func sampleRecord() record.OutcomeRecord {
	return record.OutcomeRecord{
		CallID:            "call-42",
		Purpose:           record.PurposePriorAuth,
		EndedAt:           time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC),
		TerminationReason: "completed",
		Category:          record.CategorySuccess,
		Draft: record.DraftRecord{
			CallID: "call-42",
			Authorization: record.AuthorizationInfo{
				Status:              record.StatusApproved,
				AuthorizationNumber: "AUTH-1",
			},
		},
	}
}

func TestObjectKey_BucketsByCategory(t *testing.T) {
	assert.Equal(t, "success/20250310T150405Z_call-42.json", ObjectKey(sampleRecord()))
}

func TestDirStore_SaveRoundTrips(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, NewDir(root).Save(context.Background(), sampleRecord()))

	data, err := os.ReadFile(filepath.Join(root, "success", "20250310T150405Z_call-42.json"))
	require.NoError(t, err)

	var got record.OutcomeRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "call-42", got.CallID)
	assert.Equal(t, record.CategorySuccess, got.Category)
	assert.Equal(t, record.StatusApproved, got.Draft.Authorization.Status)
}
