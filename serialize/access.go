package serialize

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/stoewer/go-strcase"
)

// Identifiable is implemented by entities with a primary key.
type Identifiable interface {
	PK() any
}

// Attributer is implemented by entities that resolve attributes
// themselves, e.g. rows loaded into a generic record.
type Attributer interface {
	Attr(name string) (any, bool)
}

// Baseliner is implemented by entities that guarantee baseline identity
// fields. Their structure is used when no other is registered.
type Baseliner interface {
	Baseline() *Structure
}

var errorType = reflect.TypeFor[error]()

type accessKey struct {
	t    reflect.Type
	name string
}

// accessor locates one attribute of a struct type.
type accessor struct {
	field  []int
	method int
	found  bool
}

var accessors sync.Map

// Attr reads the attribute name of entity the same way structures do:
// json tag, Go field name, snake_case field name, zero-argument method,
// map key or Attributer. It reports false when there is no such attribute.
func Attr(entity any, name string) (any, bool, error) {
	return attribute(entity, name)
}

// attribute reads name from entity. It reports false when the entity has
// no such attribute.
func attribute(entity any, name string) (any, bool, error) {
	if entity == nil {
		return nil, false, nil
	}
	if a, ok := entity.(Attributer); ok {
		v, ok := a.Attr(name)
		return v, ok, nil
	}

	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false, nil
		}
		v = v.Elem()
	}

	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false, nil
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false, nil
		}
		return mv.Interface(), true, nil
	case reflect.Struct:
		return structAttribute(v, name)
	default:
		return nil, false, nil
	}
}

func structAttribute(v reflect.Value, name string) (any, bool, error) {
	acc := lookup(v.Type(), name)
	if !acc.found {
		return nil, false, nil
	}

	if acc.field != nil {
		fv, err := v.FieldByIndexErr(acc.field)
		if err != nil {
			// Promoted through a nil embedded pointer.
			return nil, true, nil
		}
		return fv.Interface(), true, nil
	}

	// Methods are resolved on the pointer so pointer receivers are found.
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	out := ptr.Method(acc.method).Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, true, out[1].Interface().(error)
	}
	return out[0].Interface(), true, nil
}

func lookup(t reflect.Type, name string) accessor {
	key := accessKey{t: t, name: name}
	if acc, ok := accessors.Load(key); ok {
		return acc.(accessor)
	}
	acc := resolve(t, name)
	accessors.Store(key, acc)
	return acc
}

// resolve matches name against, in order: json tag names, Go field names,
// the snake_case form of field names, then zero-argument methods.
func resolve(t reflect.Type, name string) accessor {
	fields := reflect.VisibleFields(t)
	matchers := []func(f reflect.StructField) bool{
		func(f reflect.StructField) bool {
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return tag == name
		},
		func(f reflect.StructField) bool { return f.Name == name },
		func(f reflect.StructField) bool { return strcase.SnakeCase(f.Name) == name },
	}
	for _, match := range matchers {
		for _, f := range fields {
			if !f.IsExported() || f.Anonymous || f.Tag.Get("json") == "-" {
				continue
			}
			if match(f) {
				return accessor{field: f.Index, found: true}
			}
		}
	}

	pt := reflect.PointerTo(t)
	camel := strcase.UpperCamelCase(name)
	for i := range pt.NumMethod() {
		m := pt.Method(i)
		if m.Name != camel && m.Name != name && strcase.SnakeCase(m.Name) != name {
			continue
		}
		mt := m.Type
		// The receiver counts as the first input.
		if mt.NumIn() != 1 {
			continue
		}
		if mt.NumOut() == 1 || (mt.NumOut() == 2 && mt.Out(1) == errorType) {
			return accessor{method: i, found: true}
		}
	}
	return accessor{}
}

// identifier returns the primary key of entity.
func identifier(entity any) (any, error) {
	if id, ok := addressable(entity).(Identifiable); ok {
		return id.PK(), nil
	}
	for _, name := range []string{"id", "ID"} {
		v, ok, err := attribute(entity, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return nil, ErrNoIdentifier
}

// display returns the canonical string form of entity.
func display(entity any) string {
	if s, ok := addressable(entity).(fmt.Stringer); ok {
		return s.String()
	}
	name := typeName(entity)
	pk, err := identifier(entity)
	if err != nil {
		return "<" + name + ">"
	}
	return fmt.Sprintf("<%s pk=%v>", name, pk)
}

// addressable returns a pointer to a copy of a struct held by value so
// that methods with pointer receivers are part of its method set.
func addressable(entity any) any {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Struct {
		return entity
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr.Interface()
}

func typeName(entity any) string {
	if entity == nil {
		return "nil"
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// isNil reports whether v is nil or a nil pointer, map, slice or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// many reports whether v is a to-many relation and returns its elements.
func many(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
