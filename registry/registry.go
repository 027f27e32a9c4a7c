// Package registry is the persistent access registry: named id sets and
// id mappings that survive restarts.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// Kind is the shape of a collection.
type Kind int

const (
	// Set is an ordered set of ids.
	Set Kind = iota
	// Map is an ordered mapping of ids to values.
	Map
)

func (k Kind) String() string {
	switch k {
	case Set:
		return "set"
	case Map:
		return "map"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Collection names.
const (
	Whitelist   = "whitelist"
	Blacklist   = "blacklist"
	Wetlist     = "wetlist"
	Banlist     = "banlist"
	PermMove    = "permmv"
	LockedNames = "lockednames"
	Protections = "protections"

	Dogs       = "dogs"
	RoleLimits = "rolelimits"
	Settings   = "settings"
)

// Collections lists every collection the registry owns with its kind,
// in snapshot order.
var Collections = []struct {
	Name string
	Kind Kind
}{
	{Whitelist, Set},
	{Blacklist, Set},
	{Wetlist, Set},
	{Banlist, Set},
	{PermMove, Set},
	{LockedNames, Set},
	{Protections, Set},
	{Dogs, Map},
	{RoleLimits, Map},
	{Settings, Map},
}

// KindOf returns the kind of the named collection.
func KindOf(name string) (Kind, bool) {
	for _, c := range Collections {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return 0, false
}

var (
	// ErrUnknown is returned for operations on a collection that does not
	// exist or has the wrong kind.
	ErrUnknown = errors.New("no such collection")
	// ErrNegativeLimit is returned by SetLimit for limits below zero.
	ErrNegativeLimit = errors.New("limit must not be negative")
)

// Pair is a single mapping entry. It encodes as a two-element array.
type Pair [2]string

// Collection is the persisted form of a single set or map.
type Collection struct {
	Name  string
	Kind  Kind
	IDs   []string
	Pairs []Pair
}

// Store persists registry snapshots.
type Store interface {
	// Load loads a single collection. A collection which has never been
	// saved must load as empty with a nil error.
	Load(ctx context.Context, name string, kind Kind) (*Collection, error)
	// Save persists every collection in the snapshot.
	Save(ctx context.Context, snap []*Collection) error
}

// Registry is the set of persisted collections.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	store Store
	log   *slog.Logger
	sets  map[string]*set
	maps  map[string]*mapping
}

// Open loads a registry from a store. Each collection loads independently;
// collections that fail to load start empty, and the returned error joins
// every failure. The registry is usable whenever it is non-nil.
func Open(ctx context.Context, store Store, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		store: store,
		log:   log,
		sets:  make(map[string]*set),
		maps:  make(map[string]*mapping),
	}
	var errs []error
	for _, c := range Collections {
		switch c.Kind {
		case Set:
			r.sets[c.Name] = newSet()
		case Map:
			r.maps[c.Name] = newMapping()
		}
		l, err := store.Load(ctx, c.Name, c.Kind)
		if err != nil {
			log.ErrorContext(ctx, "couldn't load collection", slog.String("name", c.Name), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("couldn't load %s: %w", c.Name, err))
			continue
		}
		switch c.Kind {
		case Set:
			for _, id := range l.IDs {
				r.sets[c.Name].add(id)
			}
		case Map:
			for _, p := range l.Pairs {
				r.maps[c.Name].set(p[0], p[1])
			}
		}
		log.DebugContext(ctx, "loaded collection",
			slog.String("name", c.Name),
			slog.Int("ids", len(l.IDs)),
			slog.Int("pairs", len(l.Pairs)),
		)
	}
	return r, errors.Join(errs...)
}

// Add adds an id to a set. Adding an id already present changes nothing,
// but the snapshot is still persisted.
func (r *Registry) Add(ctx context.Context, list, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sets[list]
	if s == nil {
		return fmt.Errorf("couldn't add to %q: %w", list, ErrUnknown)
	}
	s.add(id)
	return r.persist(ctx)
}

// Remove removes an id from a set. Removing an absent id is not an error.
func (r *Registry) Remove(ctx context.Context, list, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sets[list]
	if s == nil {
		return fmt.Errorf("couldn't remove from %q: %w", list, ErrUnknown)
	}
	s.remove(id)
	return r.persist(ctx)
}

// Clear empties a set or a map.
func (r *Registry) Clear(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.sets[name] != nil:
		r.sets[name] = newSet()
	case r.maps[name] != nil:
		r.maps[name] = newMapping()
	default:
		return fmt.Errorf("couldn't clear %q: %w", name, ErrUnknown)
	}
	return r.persist(ctx)
}

// Contains reports whether a set contains an id.
// Unknown sets contain nothing.
func (r *Registry) Contains(list, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sets[list]
	if s == nil {
		return false
	}
	_, ok := s.idx[id]
	return ok
}

// All returns the ids in a set in insertion order.
func (r *Registry) All(list string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sets[list]
	if s == nil {
		return nil
	}
	return s.all()
}

// SetMapping sets the value for a key in a map, overwriting any previous
// value in place.
func (r *Registry) SetMapping(ctx context.Context, name, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.maps[name]
	if m == nil {
		return fmt.Errorf("couldn't set in %q: %w", name, ErrUnknown)
	}
	m.set(key, value)
	return r.persist(ctx)
}

// RemoveMapping removes a key from a map. Removing an absent key is not an
// error.
func (r *Registry) RemoveMapping(ctx context.Context, name, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.maps[name]
	if m == nil {
		return fmt.Errorf("couldn't remove from %q: %w", name, ErrUnknown)
	}
	m.remove(key)
	return r.persist(ctx)
}

// Mapping returns the value for a key in a map.
func (r *Registry) Mapping(name, key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.maps[name]
	if m == nil {
		return "", false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Mappings returns the entries of a map in insertion order.
func (r *Registry) Mappings(name string) []Pair {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.maps[name]
	if m == nil {
		return nil
	}
	return m.all()
}

// SetLimit sets the maximum number of members that may hold a role.
func (r *Registry) SetLimit(ctx context.Context, role string, n int) error {
	if n < 0 {
		return ErrNegativeLimit
	}
	return r.SetMapping(ctx, RoleLimits, role, strconv.Itoa(n))
}

// Limit returns the member limit for a role.
func (r *Registry) Limit(role string) (int, bool) {
	v, ok := r.Mapping(RoleLimits, role)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		r.log.Warn("bad role limit", slog.String("role", role), slog.String("value", v))
		return 0, false
	}
	return n, true
}

// Snapshot returns a copy of every collection.
func (r *Registry) Snapshot() []*Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Flush persists the current snapshot.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persist(ctx)
}

func (r *Registry) snapshot() []*Collection {
	snap := make([]*Collection, 0, len(Collections))
	for _, c := range Collections {
		l := &Collection{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case Set:
			l.IDs = r.sets[c.Name].all()
		case Map:
			l.Pairs = r.maps[c.Name].all()
		}
		snap = append(snap, l)
	}
	return snap
}

// persist saves the snapshot. The caller must hold r.mu.
// A failure leaves the in-memory state as it is.
func (r *Registry) persist(ctx context.Context) error {
	if err := r.store.Save(ctx, r.snapshot()); err != nil {
		r.log.ErrorContext(ctx, "couldn't persist registry", slog.Any("err", err))
		return fmt.Errorf("couldn't persist registry: %w", err)
	}
	return nil
}

// set is an insertion-ordered set.
type set struct {
	ids []string
	idx map[string]int
}

func newSet() *set {
	return &set{idx: make(map[string]int)}
}

func (s *set) add(id string) {
	if _, ok := s.idx[id]; ok {
		return
	}
	s.idx[id] = len(s.ids)
	s.ids = append(s.ids, id)
}

func (s *set) remove(id string) {
	k, ok := s.idx[id]
	if !ok {
		return
	}
	delete(s.idx, id)
	s.ids = append(s.ids[:k], s.ids[k+1:]...)
	for i := k; i < len(s.ids); i++ {
		s.idx[s.ids[i]] = i
	}
}

func (s *set) all() []string {
	r := make([]string, len(s.ids))
	copy(r, s.ids)
	return r
}

// mapping is an insertion-ordered map.
type mapping struct {
	keys []string
	vals map[string]string
}

func newMapping() *mapping {
	return &mapping{vals: make(map[string]string)}
}

func (m *mapping) set(k, v string) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

func (m *mapping) remove(k string) {
	if _, ok := m.vals[k]; !ok {
		return
	}
	delete(m.vals, k)
	for i, v := range m.keys {
		if v == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *mapping) all() []Pair {
	r := make([]Pair, len(m.keys))
	for i, k := range m.keys {
		r[i] = Pair{k, m.vals[k]}
	}
	return r
}
