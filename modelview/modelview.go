// Package modelview serves the create, read, update and delete operations
// of one entity type as an apikit Registry.
//
// A View registers nine endpoints under "<base>model/<root>/":
//
//	GET    pk           one entity, ?pk=<primary key>
//	GET    all          every entity, paginated by query parameters
//	POST   where        entities whose attributes equal the given values
//	POST   insert       create one entity
//	POST   insert-many  create several entities
//	PATCH  update       change one entity
//	PATCH  update-many  change several entities
//	DELETE delete       remove one entity
//	DELETE delete-many  remove several entities
//
// Every operation is denied unless the matching Permit field grants it.
// Updates and deletes also need PermitGet, since the entities are read
// before they are changed.
package modelview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/stoewer/go-strcase"

	"github.com/bjaus/apikit"
	"github.com/bjaus/apikit/pagination"
	"github.com/bjaus/apikit/serialize"
)

// Action names an operation. Results are serialized with the variant
// mapped to their action in View.Variants.
type Action string

// Actions of a View.
const (
	ActionGet        Action = "GET"
	ActionAll        Action = "ALL"
	ActionFind       Action = "FIND"
	ActionInsert     Action = "INSERT"
	ActionInsertMany Action = "INSERT_MANY"
	ActionUpdateOne  Action = "UPDATE_ONE"
	ActionUpdateMany Action = "UPDATE_MANY"
	ActionDelete     Action = "DELETE"
	ActionDeleteMany Action = "DELETE_MANY"
)

// DefaultFindLimit is the page size of "where" queries without a limit.
const DefaultFindLimit = 100

// ErrNotFound is returned by stores for unknown primary keys.
var ErrNotFound = errors.New("not found")

// Store persists entities of type T keyed by K.
type Store[T any, K comparable] interface {
	Get(ctx context.Context, pk K) (T, error)
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, items []T) error
	Update(ctx context.Context, items []T) error
	Delete(ctx context.Context, pks []K) error
}

// Toucher is implemented by entities that record their last update.
// Touch is called before every update is stored.
type Toucher interface {
	Touch()
}

// View configures the endpoints of one entity type.
type View[T any, K comparable] struct {
	Store      Store[T, K]
	Serializer *serialize.Serializer

	// Name defaults to the kebab-case name of T, Root to Name.
	Name string
	Root string

	// New returns the entity insert bodies are decoded into. By default a
	// zero T, with pointer types allocated.
	New func() T

	// ParsePK converts the pk query parameter. By default it is decoded
	// as JSON, then as a JSON string.
	ParsePK func(raw string) (K, error)

	// Scope hides the entities it rejects from every operation.
	Scope func(r *http.Request, item T) bool

	PermitGet    apikit.Permission
	PermitInsert apikit.Permission
	PermitUpdate apikit.Permission
	PermitDelete apikit.Permission

	// ReadOnly lists attributes update bodies may not set. Defaults to "id".
	ReadOnly []string

	Variants map[Action]string

	// Pages bounds the page size of "all"; zero values take the
	// pagination defaults.
	Pages pagination.Config

	// FindLimit is the page size of "where" queries without a limit,
	// DefaultFindLimit when zero.
	FindLimit int
}

var (
	denyGet    = deny("You're not permitted to access this resource")
	denyInsert = deny("You're not permitted to create a resource in this scope")
	denyUpdate = deny("You're not permitted to update a resource")
	denyDelete = deny("You're not permitted to delete this resource")
)

func deny(msg string) apikit.Permission {
	return apikit.PermissionFunc(func(*http.Request) error {
		return apikit.Forbidden(msg)
	})
}

func orDefault(p, def apikit.Permission) apikit.Permission {
	if p == nil {
		return def
	}
	return p
}

// Registry returns a registry serving the view under base + "model/" +
// root + "/". An empty base means "/". opts are applied after the
// registry name and tags derived from the view.
func (v *View[T, K]) Registry(base string, opts ...apikit.Option) (*apikit.Registry, error) {
	if v.Store == nil {
		return nil, errors.New("modelview: nil store")
	}
	if v.Serializer == nil {
		v.Serializer = serialize.New()
	}
	if v.Name == "" {
		v.Name = strcase.KebabCase(entityName[T]())
	}
	if v.Root == "" {
		v.Root = v.Name
	}
	if base == "" {
		base = "/"
	}
	if err := v.Pages.Finalize(); err != nil {
		return nil, fmt.Errorf("modelview: pagination: %w", err)
	}

	reg, err := apikit.New(base+"model/"+v.Root+"/",
		append([]apikit.Option{
			apikit.WithRegistryName(v.Name),
			apikit.WithRegistryTags(v.Name),
			apikit.WithRegistryDescription(fmt.Sprintf("Generic operations on %s entities", v.Name)),
		}, opts...)...)
	if err != nil {
		return nil, err
	}

	get := orDefault(v.PermitGet, denyGet)
	insert := orDefault(v.PermitInsert, denyInsert)
	update := apikit.AllOf(orDefault(v.PermitUpdate, denyUpdate), get)
	del := apikit.AllOf(orDefault(v.PermitDelete, denyDelete), get)

	endpoints := []struct {
		path, method string
		handler      http.HandlerFunc
		perm         apikit.Permission
		summary      string
	}{
		{"pk", http.MethodGet, v.get, get, "Fetch one %s by primary key"},
		{"all", http.MethodGet, v.all, get, "List %s entities"},
		{"where", http.MethodPost, v.find, get, "Find %s entities by attribute values"},
		{"insert", http.MethodPost, v.insert, insert, "Create a %s"},
		{"insert-many", http.MethodPost, v.insertMany, insert, "Create several %s entities"},
		{"update", http.MethodPatch, v.updateOne, update, "Change a %s"},
		{"update-many", http.MethodPatch, v.updateMany, update, "Change several %s entities"},
		{"delete", http.MethodDelete, v.deleteOne, del, "Remove a %s"},
		{"delete-many", http.MethodDelete, v.deleteMany, del, "Remove several %s entities"},
	}
	for _, ep := range endpoints {
		err := reg.RegisterFunc(ep.path, ep.method, ep.handler,
			apikit.WithName(v.Name+"-"+ep.path),
			apikit.WithSummary(fmt.Sprintf(ep.summary, v.Name)),
			apikit.WithPermission(ep.perm),
		)
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func entityName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func (v *View[T, K]) fresh() T {
	if v.New != nil {
		return v.New()
	}
	var item T
	if t := reflect.TypeFor[T](); t.Kind() == reflect.Pointer {
		item = reflect.New(t.Elem()).Interface().(T)
	}
	return item
}

func (v *View[T, K]) parsePK(raw string) (K, error) {
	if v.ParsePK != nil {
		return v.ParsePK(raw)
	}
	var pk K
	if err := json.Unmarshal([]byte(raw), &pk); err == nil {
		return pk, nil
	}
	quoted, _ := json.Marshal(raw)
	err := json.Unmarshal(quoted, &pk)
	return pk, err
}

func (v *View[T, K]) findLimit() int {
	if v.FindLimit > 0 {
		return v.FindLimit
	}
	return DefaultFindLimit
}

func (v *View[T, K]) readOnly() []string {
	if v.ReadOnly == nil {
		return []string{"id"}
	}
	return v.ReadOnly
}
