// Package kvstore persists registry collections in a badger database.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-json-experiment/json"

	"github.com/zephyrtronium/bouncer/registry"
)

/*
Key structure:
	"registry\xff" × collection name
The value is the collection's JSON document, the same shape jsonstore writes
to files: an array of ids for sets or an array of [key, value] pairs for maps.
*/

type Store struct {
	db *badger.DB
}

var _ registry.Store = (*Store)(nil)

func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func key(name string) []byte {
	return append([]byte("registry\xff"), name...)
}

// Load loads a single collection. A missing key is an empty collection.
func (s *Store) Load(ctx context.Context, name string, kind registry.Kind) (*registry.Collection, error) {
	l := &registry.Collection{Name: name, Kind: kind}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			switch kind {
			case registry.Set:
				return json.Unmarshal(val, &l.IDs)
			case registry.Map:
				return json.Unmarshal(val, &l.Pairs)
			default:
				return fmt.Errorf("unknown kind %v", kind)
			}
		})
	})
	switch {
	case err == nil, errors.Is(err, badger.ErrKeyNotFound):
		return l, nil
	default:
		return nil, fmt.Errorf("couldn't load %s: %w", name, err)
	}
}

// Save writes the whole snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snap []*registry.Collection) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, l := range snap {
			var (
				b   []byte
				err error
			)
			switch l.Kind {
			case registry.Set:
				b, err = json.Marshal(nonil(l.IDs))
			case registry.Map:
				b, err = json.Marshal(nonil(l.Pairs))
			}
			if err != nil {
				return fmt.Errorf("couldn't encode %s: %w", l.Name, err)
			}
			if err := txn.Set(key(l.Name), b); err != nil {
				return fmt.Errorf("couldn't set %s: %w", l.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("couldn't save registry: %w", err)
	}
	return nil
}

func nonil[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}
