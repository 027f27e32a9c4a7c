package sqlstore_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/bouncer/registry/registrytest"
	"github.com/zephyrtronium/bouncer/registry/sqlstore"
)

var dbcount atomic.Uint64

func testConn() *sqlitex.Pool {
	k := dbcount.Add(1)
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%d.db?mode=memory&cache=shared", k), sqlitex.PoolOptions{Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenMemory | sqlite.OpenSharedCache | sqlite.OpenURI})
	if err != nil {
		panic(err)
	}
	return pool
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	db := testConn()
	if err := sqlstore.Init(ctx, db); err != nil {
		t.Error(err)
	}
	// Init is idempotent so that the bot can call it on every start.
	if err := sqlstore.Init(ctx, db); err != nil {
		t.Errorf("second init: %v", err)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	db := testConn()
	if err := sqlstore.Init(ctx, db); err != nil {
		t.Fatal(err)
	}
	s, err := sqlstore.Open(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	registrytest.Test(ctx, t, s)
}
