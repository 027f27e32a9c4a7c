// Package sqlstore persists registry collections in an SQLite database.
package sqlstore

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/bouncer/registry"
)

// Store is a registry store backed by an SQL database.
type Store struct {
	db *sqlitex.Pool
}

var _ registry.Store = (*Store)(nil)

// Open opens an existing registry store in an SQL database.
func Open(ctx context.Context, db *sqlitex.Pool) (*Store, error) {
	return &Store{db: db}, nil
}

const schema = `CREATE TABLE IF NOT EXISTS registry (
	collection TEXT NOT NULL,
	pos INTEGER NOT NULL,
	k TEXT NOT NULL,
	v TEXT,
	PRIMARY KEY (collection, pos)
) STRICT`

// Init initializes a registry store in an SQL database.
// For convenience, it accepts either a single connection or a pool.
func Init[DB *sqlite.Conn | *sqlitex.Pool](ctx context.Context, db DB) error {
	var conn *sqlite.Conn
	switch db := any(db).(type) {
	case *sqlite.Conn:
		conn = db
	case *sqlitex.Pool:
		var err error
		conn, err = db.Take(ctx)
		defer db.Put(conn)
		if err != nil {
			return fmt.Errorf("couldn't get connection from pool: %w", err)
		}
	}
	return sqlitex.ExecuteTransient(conn, schema, nil)
}

// Load loads a single collection.
func (s *Store) Load(ctx context.Context, name string, kind registry.Kind) (*registry.Collection, error) {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to load %s: %w", name, err)
	}
	l := &registry.Collection{Name: name, Kind: kind}
	opts := sqlitex.ExecOptions{
		Args: []any{name},
		ResultFunc: func(st *sqlite.Stmt) error {
			switch kind {
			case registry.Set:
				l.IDs = append(l.IDs, st.ColumnText(0))
			case registry.Map:
				l.Pairs = append(l.Pairs, registry.Pair{st.ColumnText(0), st.ColumnText(1)})
			}
			return nil
		},
	}
	err = sqlitex.Execute(conn, `SELECT k, v FROM registry WHERE collection=? ORDER BY pos`, &opts)
	if err != nil {
		return nil, fmt.Errorf("couldn't load %s: %w", name, err)
	}
	return l, nil
}

// Save replaces every collection in the snapshot within one savepoint.
func (s *Store) Save(ctx context.Context, snap []*registry.Collection) (err error) {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to save registry: %w", err)
	}
	defer sqlitex.Save(conn)(&err)
	for _, l := range snap {
		opts := sqlitex.ExecOptions{Args: []any{l.Name}}
		if err := sqlitex.Execute(conn, `DELETE FROM registry WHERE collection=?`, &opts); err != nil {
			return fmt.Errorf("couldn't clear %s: %w", l.Name, err)
		}
		const ins = `INSERT INTO registry (collection, pos, k, v) VALUES (?, ?, ?, ?)`
		switch l.Kind {
		case registry.Set:
			for i, id := range l.IDs {
				opts := sqlitex.ExecOptions{Args: []any{l.Name, i, id, nil}}
				if err := sqlitex.Execute(conn, ins, &opts); err != nil {
					return fmt.Errorf("couldn't save %s: %w", l.Name, err)
				}
			}
		case registry.Map:
			for i, p := range l.Pairs {
				opts := sqlitex.ExecOptions{Args: []any{l.Name, i, p[0], p[1]}}
				if err := sqlitex.Execute(conn, ins, &opts); err != nil {
					return fmt.Errorf("couldn't save %s: %w", l.Name, err)
				}
			}
		}
	}
	return nil
}
