package serialize

import "slices"

// Rule decides how one field of a Structure is rendered. It is one of
// the Mode constants, a nested *Structure or a Computed function.
type Rule interface {
	isRule()
}

// Mode is a rule that needs no further configuration.
type Mode int

const (
	// Include copies the attribute verbatim.
	Include Mode = iota + 1
	// AsIdentifier renders a related entity by its primary key.
	AsIdentifier
	// AsString renders a related entity by its display string.
	AsString
	// AsRegistered renders a related entity with the default structure
	// registered for its type on the serializer.
	AsRegistered
)

func (Mode) isRule() {}

func (m Mode) String() string {
	switch m {
	case Include:
		return "include"
	case AsIdentifier:
		return "pk"
	case AsString:
		return "string"
	case AsRegistered:
		return "default"
	default:
		return "invalid"
	}
}

// Computed derives a value from the whole entity instead of reading an
// attribute.
type Computed func(entity any) (any, error)

func (Computed) isRule() {}

// Filter selects which entities of a to-many relation are serialized.
type Filter func(entity any) bool

// Structure is an ordered mapping from field name to Rule. Structures are
// built at startup and only read afterwards.
type Structure struct {
	keys   []string
	rules  map[string]Rule
	filter Filter
}

func (*Structure) isRule() {}

// Struct returns a structure that includes every named field.
func Struct(names ...string) *Structure {
	s := &Structure{rules: make(map[string]Rule, len(names))}
	for _, n := range names {
		s.Set(n, Include)
	}
	return s
}

// Set adds or replaces the rule for name. A replaced field keeps its
// original position. A nil rule, including a nil *Structure or Computed,
// means Include.
func (s *Structure) Set(name string, r Rule) *Structure {
	if s.rules == nil {
		s.rules = make(map[string]Rule)
	}
	if isNilRule(r) {
		r = Include
	}
	if _, ok := s.rules[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.rules[name] = r
	return s
}

// Where restricts to-many relations rendered with this structure to the
// entities f accepts.
func (s *Structure) Where(f Filter) *Structure {
	s.filter = f
	return s
}

// Keys returns the field names in declaration order.
func (s *Structure) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Rule returns the rule declared for name.
func (s *Structure) Rule(name string) (Rule, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.rules[name]
	return r, ok
}

// Len returns the number of fields.
func (s *Structure) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

func isNilRule(r Rule) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *Structure:
		return v == nil
	case Computed:
		return v == nil
	default:
		return false
	}
}

func (s *Structure) accepts(entity any) bool {
	return s == nil || s.filter == nil || s.filter(entity)
}
