package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dovydasv/reel/internal/models"
)

func TestKV_SetGetDelete(t *testing.T) {
	kv, err := OpenKV(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	defer kv.Close()

	val, err := kv.GetValue("token")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	require.NoError(t, kv.SetValue("token", "abc123"))
	val, err = kv.GetValue("token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", val)

	require.NoError(t, kv.SetValue("token", "def456"))
	val, err = kv.GetValue("token")
	require.NoError(t, err)
	assert.Equal(t, "def456", val)

	require.NoError(t, kv.DeleteValue("token"))
	val, err = kv.GetValue("token")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	// Deleting again is fine.
	require.NoError(t, kv.DeleteValue("token"))
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")

	kv, err := OpenKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.SetValue("user", `{"id":"u1"}`))
	require.NoError(t, kv.Close())

	kv, err = OpenKV(path)
	require.NoError(t, err)
	defer kv.Close()
	val, err := kv.GetValue("user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, val)
}

func TestActivityLog_RecordAndList(t *testing.T) {
	log, err := OpenActivityLog(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Record(models.Activity{
		Action:  models.ActionToggleLike,
		Target:  "Post:p1",
		Outcome: "confirmed",
	}))
	require.NoError(t, log.Record(models.Activity{
		Action:  models.ActionAddComment,
		Target:  "Post:p1",
		Detail:  "first!",
		Outcome: "failed",
		Error:   "network unreachable",
	}))

	activities, err := log.List(0)
	require.NoError(t, err)
	require.Len(t, activities, 2)

	// Newest first.
	assert.Equal(t, models.ActionAddComment, activities[0].Action)
	assert.Equal(t, "failed", activities[0].Outcome)
	assert.Equal(t, "network unreachable", activities[0].Error)
	assert.Equal(t, "first!", activities[0].Detail)

	assert.Equal(t, models.ActionToggleLike, activities[1].Action)
	assert.Equal(t, "confirmed", activities[1].Outcome)
	assert.Empty(t, activities[1].Error)
	assert.WithinDuration(t, time.Now(), activities[1].Timestamp, 5*time.Second)
}

func TestActivityLog_ListHonorsLimit(t *testing.T) {
	log, err := OpenActivityLog(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer log.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record(models.Activity{
			Action:  models.ActionSetRating,
			Target:  "Post:p1",
			Outcome: "confirmed",
		}))
	}

	activities, err := log.List(3)
	require.NoError(t, err)
	assert.Len(t, activities, 3)
}
