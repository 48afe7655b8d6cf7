package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"poker-club-bot/internal/model"
)

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "users.json"))

	users, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFileBackend_BlankFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	users, err := NewFileBackend(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFileBackend_ReadsLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	legacy := `{"5252767835": {"username": "owner", "chips": 1000}, "17": {"username": null, "chips": 950}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	users, err := NewFileBackend(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.User{
		{ID: 5252767835, Username: "owner", Chips: 1000},
		{ID: 17, Username: "", Chips: 950},
	}, users)
}

func TestFileBackend_RoundTripKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	b := NewFileBackend(path)
	ctx := context.Background()
	assert.Equal(t, path, b.Path())

	in := []model.User{
		{ID: 900, Username: "zed", Chips: 10},
		{ID: 2, Username: "", Chips: 0},
		{ID: 55, Username: "a.b \"quoted\"", Chips: 1050},
	}
	require.NoError(t, b.Save(ctx, in))

	out, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, gjson.Null, gjson.GetBytes(raw, "2.username").Type)
	assert.Equal(t, int64(1050), gjson.GetBytes(raw, "55.chips").Int())

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RaisesNegativeBalanceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"3": {"username": "x", "chips": -10}}`), 0o644))
	ctx := context.Background()

	s, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)

	user, err := s.AddChips(ctx, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), user.Chips)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), gjson.GetBytes(raw, "3.chips").Int())
}

func TestFileBackend_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	b := NewFileBackend(path)

	require.NoError(t, b.Save(context.Background(), nil))
	users, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFileBackend_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"1": {"username": "a", "chips": 10`},
		{"array", `[1, 2, 3]`},
		{"non numeric key", `{"alice": {"username": "a", "chips": 10}}`},
		{"record not object", `{"1": 10}`},
		{"missing chips", `{"1": {"username": "a"}}`},
		{"fractional chips", `{"1": {"username": "a", "chips": 10.5}}`},
		{"numeric username", `{"1": {"username": 5, "chips": 10}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "users.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewFileBackend(path).Load(context.Background())
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFileBackend_SaveToMissingDirectoryFails(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "missing", "users.json"))
	assert.Error(t, b.Save(context.Background(), []model.User{{ID: 1, Chips: 1}}))
}

func TestStore_PersistsThroughFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	s, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)
	_, _, err = s.GetOrCreate(ctx, 1, "alice", 1000)
	require.NoError(t, err)
	_, err = s.AddChips(ctx, 1, -50)
	require.NoError(t, err)

	reopened, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)
	user, err := reopened.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(950), user.Chips)
	assert.Equal(t, "alice", user.Username)
}
