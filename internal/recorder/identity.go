package recorder

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// UserIDKey is the key under which the participant identity is kept.
const UserIDKey = "clip_tag_user_id"

// Identity remembers the user id of the last successful submission across runs.
type Identity struct {
	db *badger.DB
}

// OpenIdentity opens the identity store in dir. An empty dir keeps it in memory.
func OpenIdentity(dir string) (*Identity, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	return &Identity{db: db}, nil
}

// Close releases the store.
func (s *Identity) Close() error { return s.db.Close() }

// UserID returns the stored id, or "" when none has been saved.
func (s *Identity) UserID() (string, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(UserIDKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("read user id: %w", err)
	}
	return id, nil
}

// SetUserID replaces the stored id.
func (s *Identity) SetUserID(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(UserIDKey), []byte(id))
	})
}

// DeriveUserID builds the user id from study and participant: "study-participant",
// the participant alone without a study, or "" without a participant.
func DeriveUserID(study, participant string) string {
	if participant == "" {
		return ""
	}
	if study == "" {
		return participant
	}
	return study + "-" + participant
}
