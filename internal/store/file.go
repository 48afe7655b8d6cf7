package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"poker-club-bot/internal/model"
)

// FileBackend stores users in one JSON object keyed by user ID:
//
//	{"5252767835": {"username": "alice", "chips": 1000}}
//
// Key order in the file is the insertion order. Writes go to a temp file in
// the same directory which is then renamed over the target.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend for the file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads all users. A missing or blank file is an empty store.
func (b *FileBackend) Load(_ context.Context) ([]model.User, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	users, err := decodeUsers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.path, err)
	}
	return users, nil
}

// Save replaces the file with the given users.
func (b *FileBackend) Save(_ context.Context, users []model.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data, 0o644)
}

func decodeUsers(data []byte) ([]model.User, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrCorrupt)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrCorrupt)
	}

	var (
		users  []model.User
		decErr error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		u, err := decodeUser(key.String(), value)
		if err != nil {
			decErr = err
			return false
		}
		users = append(users, u)
		return true
	})
	if decErr != nil {
		return nil, decErr
	}
	return users, nil
}

func decodeUser(key string, value gjson.Result) (model.User, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: key %q is not a user ID", ErrCorrupt, key)
	}
	if !value.IsObject() {
		return model.User{}, fmt.Errorf("%w: user %d is not an object", ErrCorrupt, id)
	}

	chips := value.Get("chips")
	if chips.Type != gjson.Number {
		return model.User{}, fmt.Errorf("%w: user %d has no numeric chips", ErrCorrupt, id)
	}
	amount, err := strconv.ParseInt(chips.Raw, 10, 64)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: user %d chips %s is not an integer", ErrCorrupt, id, chips.Raw)
	}

	var username string
	switch name := value.Get("username"); name.Type {
	case gjson.Null:
		// absent or null: the player has no handle
	case gjson.String:
		username = name.String()
	default:
		return model.User{}, fmt.Errorf("%w: user %d username must be a string or null", ErrCorrupt, id)
	}

	return model.User{ID: id, Username: username, Chips: amount}, nil
}

func encodeUsers(users []model.User) ([]byte, error) {
	doc := []byte("{}")
	for _, u := range users {
		var name any
		if u.Username != "" {
			name = u.Username
		}

		record, err := sjson.SetBytes([]byte("{}"), "username", name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode user %d: %w", u.ID, err)
		}
		record, err = sjson.SetBytes(record, "chips", u.Chips)
		if err != nil {
			return nil, fmt.Errorf("failed to encode user %d: %w", u.ID, err)
		}

		// ':' forces an object key even though the ID is numeric.
		doc, err = sjson.SetRawBytes(doc, ":"+strconv.FormatInt(u.ID, 10), record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode user %d: %w", u.ID, err)
		}
	}
	return []byte(gjson.GetBytes(doc, "@pretty").Raw), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
