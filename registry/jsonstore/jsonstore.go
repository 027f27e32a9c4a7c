// Package jsonstore persists registry collections as one JSON document per
// collection in a directory.
package jsonstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"

	"github.com/zephyrtronium/bouncer/registry"
)

// Store is a directory of collection files.
type Store struct {
	dir string
}

var _ registry.Store = (*Store)(nil)

// New creates a store in dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("couldn't create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file that holds the named collection.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads a single collection. A missing file is an empty collection.
// Sets are arrays of ids; maps are arrays of [key, value] pairs.
func (s *Store) Load(ctx context.Context, name string, kind registry.Kind) (*registry.Collection, error) {
	l := &registry.Collection{Name: name, Kind: kind}
	b, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("couldn't read %s: %w", name, err)
	}
	switch kind {
	case registry.Set:
		err = json.Unmarshal(b, &l.IDs)
	case registry.Map:
		err = json.Unmarshal(b, &l.Pairs)
	default:
		return nil, fmt.Errorf("couldn't decode %s: unknown kind %v", name, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't decode %s: %w", name, err)
	}
	return l, nil
}

// Save writes every collection. Each file is replaced atomically; a failure
// on one file does not stop the others from being written.
func (s *Store) Save(ctx context.Context, snap []*registry.Collection) error {
	var errs []error
	for _, l := range snap {
		var v any
		switch l.Kind {
		case registry.Set:
			v = nonil(l.IDs)
		case registry.Map:
			v = nonil(l.Pairs)
		}
		b, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("couldn't encode %s: %w", l.Name, err))
			continue
		}
		if err := s.write(l.Name, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) write(name string, b []byte) error {
	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("couldn't create temp file for %s: %w", name, err)
	}
	tmp := f.Name()
	_, err = f.Write(b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("couldn't write %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.Path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("couldn't replace %s: %w", name, err)
	}
	return nil
}

func nonil[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}
