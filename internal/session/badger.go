package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const keyPrefix = "session:"

// BadgerStore persists sessions in a local badger database. Entries carry a
// TTL so an abandoned conversation disappears on its own; Prune additionally
// reclaims value-log space.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens (or creates) the badger database at dir. A non-positive
// ttl keeps sessions forever.
func OpenBadger(dir string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func sessionKey(userID string) []byte {
	return []byte(keyPrefix + userID)
}

func (s *BadgerStore) Get(ctx context.Context, userID string) (Session, error) {
	var session Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s *BadgerStore) Put(ctx context.Context, session Session) error {
	value, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(session.UserID), value)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(userID))
	})
}

// Prune triggers value-log garbage collection. Badger expires TTL'd entries
// itself, so there is nothing to count here.
func (s *BadgerStore) Prune(ctx context.Context) (int, error) {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
