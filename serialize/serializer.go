package serialize

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// DefaultMaxDepth bounds how deeply nested structures may recurse.
const DefaultMaxDepth = 32

// Variant is an alternative structure registered for a type, selected by
// name with DumpAs.
type Variant struct {
	Name      string
	Structure *Structure
}

// Named returns a Variant.
func Named(name string, st *Structure) Variant {
	return Variant{Name: name, Structure: st}
}

type entry struct {
	def      *Structure
	variants map[string]*Structure
}

// Serializer associates entity types with their structures and renders
// entities into Objects. It is safe for concurrent use once registration
// is done.
type Serializer struct {
	maxDepth int
	logger   *slog.Logger

	mu    sync.RWMutex
	types map[reflect.Type]entry
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithMaxDepth limits the nesting depth. Values below one keep the default.
func WithMaxDepth(n int) Option {
	return func(s *Serializer) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Serializer) {
		s.logger = l
	}
}

// New creates a Serializer.
func New(opts ...Option) *Serializer {
	s := &Serializer{
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
		types:    make(map[reflect.Type]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var std = New()

// Serialize renders entity with st using a serializer with default
// options.
func Serialize(entity any, st *Structure) (Object, error) {
	return std.Serialize(entity, st)
}

// Register associates def, and optional named variants, with T. Values
// and pointers of T share the association.
func Register[T any](s *Serializer, def *Structure, variants ...Variant) error {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	e := entry{def: def, variants: make(map[string]*Structure, len(variants))}
	for _, v := range variants {
		e.variants[v.Name] = v.Structure
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[t]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, t)
	}
	s.types[t] = e
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](s *Serializer, def *Structure, variants ...Variant) {
	if err := Register[T](s, def, variants...); err != nil {
		panic(err)
	}
}

// Structure returns the default structure registered for entity's type.
func (s *Serializer) Structure(entity any) (*Structure, bool) {
	e, ok := s.entry(entity)
	if !ok || e.def == nil {
		return nil, false
	}
	return e.def, true
}

func (s *Serializer) entry(entity any) (entry, bool) {
	if entity == nil {
		return entry{}, false
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.types[t]
	return e, ok
}

// Dump renders entity with the structure registered for its type. An
// unregistered entity is rendered with its Baseline structure if it has
// one, and as an empty Object otherwise.
func (s *Serializer) Dump(entity any) (Object, error) {
	return s.dump(entity, 0)
}

// DumpAs renders entity with the named variant registered for its type.
func (s *Serializer) DumpAs(entity any, variant string) (Object, error) {
	e, _ := s.entry(entity)
	st, ok := e.variants[variant]
	if !ok {
		return Object{}, &SerializationError{Entity: typeName(entity), Err: fmt.Errorf("%w: %q", ErrUnknownVariant, variant)}
	}
	return s.Serialize(entity, st)
}

// DumpMany renders each element of a slice with Dump.
func (s *Serializer) DumpMany(items any) ([]Object, error) {
	list, ok := many(items)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotSlice, items)
	}
	out := make([]Object, 0, len(list))
	for _, item := range list {
		obj, err := s.Dump(item)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// Serialize renders entity with st. A nil structure renders an empty
// Object.
func (s *Serializer) Serialize(entity any, st *Structure) (Object, error) {
	return s.walk(entity, st, 0)
}

func (s *Serializer) dump(entity any, depth int) (Object, error) {
	if st, ok := s.Structure(entity); ok {
		return s.walk(entity, st, depth)
	}
	if b, ok := entity.(Baseliner); ok {
		s.logger.Debug("no structure registered, using baseline", "entity", typeName(entity))
		return s.walk(entity, b.Baseline(), depth)
	}
	s.logger.Debug("no structure registered", "entity", typeName(entity))
	return newObject(0), nil
}

func (s *Serializer) walk(entity any, st *Structure, depth int) (Object, error) {
	if depth > s.maxDepth {
		return Object{}, &SerializationError{Entity: typeName(entity), Err: ErrMaxDepth}
	}

	if st == nil {
		return newObject(0), nil
	}

	out := newObject(st.Len())
	for _, key := range st.keys {
		v, err := s.field(entity, key, st.rules[key], depth)
		if err != nil {
			return Object{}, err
		}
		out.set(key, v)
	}
	return out, nil
}

func (s *Serializer) field(entity any, key string, rule Rule, depth int) (any, error) {
	fail := func(err error) error {
		return &SerializationError{Entity: typeName(entity), Field: key, Err: err}
	}

	if fn, ok := rule.(Computed); ok {
		v, err := fn(entity)
		if err != nil {
			return nil, fail(err)
		}
		return v, nil
	}

	v, ok, err := attribute(entity, key)
	if err != nil {
		return nil, fail(err)
	}
	if !ok {
		return nil, fail(ErrMissingField)
	}

	switch r := rule.(type) {
	case *Structure:
		return s.related(v, func(e any) (any, error) {
			return s.walk(e, r, depth+1)
		}, r.accepts)
	case Mode:
		switch r {
		case Include:
			return v, nil
		case AsIdentifier:
			return s.related(v, func(e any) (any, error) {
				pk, err := identifier(e)
				if err != nil {
					return nil, fail(err)
				}
				return pk, nil
			}, nil)
		case AsString:
			return s.related(v, func(e any) (any, error) {
				return display(e), nil
			}, nil)
		case AsRegistered:
			return s.related(v, func(e any) (any, error) {
				return s.dump(e, depth+1)
			}, nil)
		}
	}
	return nil, fail(fmt.Errorf("%w: %v", ErrInvalidRule, rule))
}

// related applies render to a single related entity or to each entity of
// a to-many relation that keep accepts.
func (s *Serializer) related(v any, render func(any) (any, error), keep Filter) (any, error) {
	if list, ok := many(v); ok {
		out := make([]any, 0, len(list))
		for _, e := range list {
			if keep != nil && !keep(e) {
				continue
			}
			r, err := render(e)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}
	if isNil(v) {
		return nil, nil
	}
	return render(v)
}
