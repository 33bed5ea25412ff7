package recskema

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Store maps schema names to descriptors. Each schema is stored under its
// full name and, when unambiguous, under its bare name. A Store is not safe
// for concurrent mutation.
//
// When two different namespaced schemas claim the same bare name, the bare
// name is poisoned: registration only warns, and Get of that bare name fails
// with *SchemaConflictError. Full names keep resolving.
type Store struct {
	byName   map[string]*Schema
	poisoned map[string][]string
	enums    map[string]*EnumType
	logger   *zerolog.Logger
}

// StoreOpt configures NewStore.
type StoreOpt func(*Store)

// WithLogger routes the store's diagnostics to l instead of the package logger.
func WithLogger(l zerolog.Logger) StoreOpt { return func(s *Store) { s.logger = &l } }

// NewStore returns an empty store.
func NewStore(opts ...StoreOpt) *Store {
	s := &Store{
		byName:   map[string]*Schema{},
		poisoned: map[string][]string{},
		enums:    map[string]*EnumType{},
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

var defaultStore atomic.Pointer[Store]

func init() { defaultStore.Store(NewStore()) }

// DefaultStore returns the process-wide store that Declare registers into.
func DefaultStore() *Store { return defaultStore.Load() }

// SetDefaultStore replaces the process-wide store and returns the previous one.
// Tests use it with Clone to scope declarations.
func SetDefaultStore(s *Store) *Store {
	if s == nil {
		s = NewStore()
	}
	return defaultStore.Swap(s)
}

func (s *Store) log() *zerolog.Logger {
	if s.logger != nil {
		return s.logger
	}
	l := Logger()
	return &l
}

// Add registers sc under its full name and, when possible, its bare name.
func (s *Store) Add(sc *Schema) {
	full := sc.FullName()
	if prev, ok := s.byName[full]; ok && prev != sc {
		s.log().Warn().Str("schema", full).Msg("replacing previous schema definition")
	}
	s.byName[full] = sc
	if sc.namespace == "" {
		// A bare registration owns its slot outright.
		delete(s.poisoned, full)
		return
	}

	bare := sc.name
	if cands, bad := s.poisoned[bare]; bad {
		s.poisoned[bare] = appendUnique(cands, full)
		s.log().Warn().Str("name", bare).Strs("candidates", s.poisoned[bare]).Msg("bare schema name stays ambiguous")
		return
	}
	occ, ok := s.byName[bare]
	if !ok || occ.FullName() == full {
		s.byName[bare] = sc
		return
	}
	s.poisoned[bare] = appendUnique([]string{occ.FullName()}, full)
	s.log().Warn().Str("name", bare).Strs("candidates", s.poisoned[bare]).Msg("bare schema name is ambiguous; lookups by it will fail")
}

// Get resolves a name: exact match first, then the last dotted segment.
// It returns *SchemaConflictError for a poisoned bare name and wraps
// ErrSchemaNotFound otherwise.
func (s *Store) Get(name string) (*Schema, error) {
	if cands, bad := s.poisoned[name]; bad {
		return nil, &SchemaConflictError{Name: name, Candidates: append([]string(nil), cands...)}
	}
	if sc, ok := s.byName[name]; ok {
		return sc, nil
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return s.Get(name[i+1:])
	}
	return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
}

// Remove unregisters sc from every slot that points at it. When sc was one of
// the candidates for a poisoned bare name, it is dropped from the list; a
// single survivor takes the bare name back.
func (s *Store) Remove(sc *Schema) {
	for k, v := range s.byName {
		if v == sc {
			delete(s.byName, k)
		}
	}
	bare := sc.name
	cands, bad := s.poisoned[bare]
	if !bad {
		return
	}
	full := sc.FullName()
	if s.byName[full] != nil {
		// Another schema now owns the full name; it is still a candidate.
		return
	}
	kept := cands[:0:0]
	for _, c := range cands {
		if c != full {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		delete(s.poisoned, bare)
	case 1:
		delete(s.poisoned, bare)
		if survivor, ok := s.byName[kept[0]]; ok {
			s.byName[bare] = survivor
		}
	default:
		s.poisoned[bare] = kept
	}
}

// Contains reports whether sc is registered under any name.
func (s *Store) Contains(sc *Schema) bool {
	for _, v := range s.byName {
		if v == sc {
			return true
		}
	}
	return false
}

// Names returns the registered names, sorted.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.byName))
	for k := range s.byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Schemas returns each registered schema once, sorted by full name.
func (s *Store) Schemas() []*Schema {
	seen := map[*Schema]struct{}{}
	var out []*Schema
	for _, v := range s.byName {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}

// Clear removes every registration.
func (s *Store) Clear() {
	s.byName = map[string]*Schema{}
	s.poisoned = map[string][]string{}
	s.enums = map[string]*EnumType{}
}

// Clone returns a shallow copy: the maps are copied, the schemas shared.
func (s *Store) Clone() *Store {
	c := &Store{
		byName:   make(map[string]*Schema, len(s.byName)),
		poisoned: make(map[string][]string, len(s.poisoned)),
		enums:    make(map[string]*EnumType, len(s.enums)),
		logger:   s.logger,
	}
	for k, v := range s.byName {
		c.byName[k] = v
	}
	for k, v := range s.poisoned {
		c.poisoned[k] = append([]string(nil), v...)
	}
	for k, v := range s.enums {
		c.enums[k] = v
	}
	return c
}

// AddEnum registers a named enumeration for reference by name.
func (s *Store) AddEnum(e *EnumType) error {
	if e.name == "" {
		return fmt.Errorf("%w: enum without a name cannot be registered", ErrInvalidSchema)
	}
	if _, ok := s.enums[e.name]; ok {
		s.log().Warn().Str("enum", e.name).Msg("replacing previous enum definition")
	}
	s.enums[e.name] = e
	return nil
}

// Enum looks a named enumeration up.
func (s *Store) Enum(name string) (*EnumType, bool) {
	e, ok := s.enums[name]
	return e, ok
}

func appendUnique(xs []string, v string) []string {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}
