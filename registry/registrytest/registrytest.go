// Package registrytest provides a conformance test for registry stores.
package registrytest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/zephyrtronium/bouncer/registry"
)

// Test runs a store through the shapes the registry persists.
// The store must be empty.
func Test(ctx context.Context, t *testing.T, s registry.Store) {
	t.Helper()
	t.Run("empty", func(t *testing.T) {
		for _, c := range registry.Collections {
			l, err := s.Load(ctx, c.Name, c.Kind)
			if err != nil {
				t.Errorf("couldn't load %s from empty store: %v", c.Name, err)
				continue
			}
			if len(l.IDs) != 0 || len(l.Pairs) != 0 {
				t.Errorf("%s not empty: %+v", c.Name, l)
			}
		}
	})
	t.Run("round-trip", func(t *testing.T) {
		snap := []*registry.Collection{
			{Name: registry.Whitelist, Kind: registry.Set, IDs: []string{"bocchi", "ryou"}},
			{Name: registry.Blacklist, Kind: registry.Set},
			{Name: registry.Dogs, Kind: registry.Map, Pairs: []registry.Pair{{"kita", "nijika"}, {"ryou", "bocchi"}}},
			{Name: registry.RoleLimits, Kind: registry.Map, Pairs: []registry.Pair{{"band", "4"}}},
		}
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("couldn't save: %v", err)
		}
		for _, want := range snap {
			got, err := s.Load(ctx, want.Name, want.Kind)
			if err != nil {
				t.Errorf("couldn't load %s: %v", want.Name, err)
				continue
			}
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("wrong %s (-want +got):\n%s", want.Name, diff)
			}
		}
	})
	t.Run("overwrite", func(t *testing.T) {
		snap := []*registry.Collection{
			{Name: registry.Whitelist, Kind: registry.Set, IDs: []string{"kita"}},
		}
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("couldn't save: %v", err)
		}
		got, err := s.Load(ctx, registry.Whitelist, registry.Set)
		if err != nil {
			t.Fatalf("couldn't load: %v", err)
		}
		if diff := cmp.Diff([]string{"kita"}, got.IDs); diff != "" {
			t.Errorf("wrong ids after overwrite (-want +got):\n%s", diff)
		}
	})
}
