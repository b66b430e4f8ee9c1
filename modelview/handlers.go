package modelview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"slices"

	"github.com/samber/lo"

	"github.com/bjaus/apikit"
	"github.com/bjaus/apikit/pagination"
	"github.com/bjaus/apikit/serialize"
)

type pkBody[K comparable] struct {
	PK K `json:"pk" required:"true"`
}

type pksBody[K comparable] struct {
	PKs []K `json:"pks" required:"true" minItems:"1"`
}

type findBody struct {
	Where  map[string]any `json:"where" required:"true"`
	Limit  int            `json:"limit" minimum:"1"`
	Offset int            `json:"offset" minimum:"0" doc:"page index"`
}

type insertManyBody struct {
	Objects []json.RawMessage `json:"objects" required:"true" minItems:"1"`
}

type updateOneBody[K comparable] struct {
	PK  K               `json:"pk" required:"true"`
	Set json.RawMessage `json:"set_" required:"true"`
}

type updateManyBody[K comparable] struct {
	PKs []K             `json:"pks" required:"true" minItems:"1"`
	Set json.RawMessage `json:"set_" required:"true"`
}

// decode reads and validates the JSON body.
func decode(r *http.Request, body any) error {
	if err := apikit.DecodeJSON(r, body); err != nil {
		return err
	}
	return apikit.Validate(body)
}

func (v *View[T, K]) get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pk")
	if raw == "" {
		apikit.WriteError(w, apikit.InputError(apikit.ValidationError{Field: "pk", Message: "is required"}))
		return
	}
	pk, err := v.parsePK(raw)
	if err != nil {
		apikit.WriteError(w, apikit.InputError(apikit.ValidationError{Field: "pk", Message: err.Error(), Value: raw}))
		return
	}
	item, err := v.load(r, pk)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	v.respond(w, r, http.StatusOK, ActionGet, item)
}

func (v *View[T, K]) all(w http.ResponseWriter, r *http.Request) {
	items, err := v.list(r)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	page := pagination.FromQuery(r.URL.Query(), v.Pages)
	v.respondMany(w, r, http.StatusOK, ActionAll, pagination.Paginate(items, page))
}

func (v *View[T, K]) find(w http.ResponseWriter, r *http.Request) {
	body := findBody{Limit: v.findLimit()}
	if err := decode(r, &body); err != nil {
		apikit.WriteError(w, err)
		return
	}
	items, err := v.list(r)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}

	matched := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := matches(item, body.Where)
		if err != nil {
			apikit.WriteError(w, err)
			return
		}
		if ok {
			matched = append(matched, item)
		}
	}

	page := pagination.Params{Offset: body.Offset, Limit: body.Limit}
	v.respondMany(w, r, http.StatusOK, ActionFind, pagination.Paginate(matched, page))
}

func (v *View[T, K]) insert(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := apikit.DecodeJSON(r, &raw); err != nil {
		apikit.WriteError(w, err)
		return
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	item, err := v.decodeOnto(v.fresh(), raw, "")
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	if err := apikit.Validate(item); err != nil {
		apikit.WriteError(w, err)
		return
	}
	if err := v.Store.Insert(r.Context(), []T{item}); err != nil {
		apikit.WriteError(w, err)
		return
	}
	v.respond(w, r, http.StatusCreated, ActionInsert, item)
}

func (v *View[T, K]) insertMany(w http.ResponseWriter, r *http.Request) {
	var body insertManyBody
	if err := decode(r, &body); err != nil {
		apikit.WriteError(w, err)
		return
	}

	items := make([]T, 0, len(body.Objects))
	for i, raw := range body.Objects {
		field := fmt.Sprintf("objects[%d]", i)
		item, err := v.decodeOnto(v.fresh(), raw, field)
		if err != nil {
			apikit.WriteError(w, err)
			return
		}
		if err := apikit.Validate(item); err != nil {
			apikit.WriteError(w, within(field, err))
			return
		}
		items = append(items, item)
	}

	if err := v.Store.Insert(r.Context(), items); err != nil {
		apikit.WriteError(w, err)
		return
	}
	v.respondMany(w, r, http.StatusCreated, ActionInsertMany, items)
}

func (v *View[T, K]) updateOne(w http.ResponseWriter, r *http.Request) {
	var body updateOneBody[K]
	if err := decode(r, &body); err != nil {
		apikit.WriteError(w, err)
		return
	}
	item, err := v.load(r, body.PK)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	if item, err = v.apply(item, body.Set); err != nil {
		apikit.WriteError(w, err)
		return
	}
	if err := v.Store.Update(r.Context(), []T{item}); err != nil {
		apikit.WriteError(w, err)
		return
	}
	v.respond(w, r, http.StatusOK, ActionUpdateOne, item)
}

func (v *View[T, K]) updateMany(w http.ResponseWriter, r *http.Request) {
	var body updateManyBody[K]
	if err := decode(r, &body); err != nil {
		apikit.WriteError(w, err)
		return
	}

	items := make([]T, 0, len(body.PKs))
	for _, pk := range body.PKs {
		item, err := v.load(r, pk)
		if err != nil {
			apikit.WriteError(w, err)
			return
		}
		if item, err = v.apply(item, body.Set); err != nil {
			apikit.WriteError(w, err)
			return
		}
		items = append(items, item)
	}

	if err := v.Store.Update(r.Context(), items); err != nil {
		apikit.WriteError(w, err)
		return
	}
	v.respondMany(w, r, http.StatusOK, ActionUpdateMany, items)
}

func (v *View[T, K]) deleteOne(w http.ResponseWriter, r *http.Request) {
	var body pkBody[K]
	if err := decode(r, &body); err != nil {
		apikit.WriteError(w, err)
		return
	}
	if _, err := v.load(r, body.PK); err != nil {
		apikit.WriteError(w, err)
		return
	}
	if err := v.Store.Delete(r.Context(), []K{body.PK}); err != nil {
		apikit.WriteError(w, v.storeError(err, body.PK))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteMany removes the entities that exist in scope and ignores the
// other keys.
func (v *View[T, K]) deleteMany(w http.ResponseWriter, r *http.Request) {
	var body pksBody[K]
	if err := decode(r, &body); err != nil {
		apikit.WriteError(w, err)
		return
	}

	var found []K
	for _, pk := range lo.Uniq(body.PKs) {
		_, err := v.load(r, pk)
		if apikit.ErrorStatus(err) == http.StatusNotFound {
			continue
		}
		if err != nil {
			apikit.WriteError(w, err)
			return
		}
		found = append(found, pk)
	}

	if len(found) > 0 {
		if err := v.Store.Delete(r.Context(), found); err != nil {
			apikit.WriteError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches one entity, reporting entities outside the scope as
// missing.
func (v *View[T, K]) load(r *http.Request, pk K) (T, error) {
	item, err := v.Store.Get(r.Context(), pk)
	if err != nil {
		return item, v.storeError(err, pk)
	}
	if !v.inScope(r, item) {
		var zero T
		return zero, v.notFound(pk)
	}
	return item, nil
}

func (v *View[T, K]) list(r *http.Request) ([]T, error) {
	items, err := v.Store.List(r.Context())
	if err != nil {
		return nil, err
	}
	return lo.Filter(items, func(item T, _ int) bool { return v.inScope(r, item) }), nil
}

func (v *View[T, K]) inScope(r *http.Request, item T) bool {
	return v.Scope == nil || v.Scope(r, item)
}

func (v *View[T, K]) storeError(err error, pk K) error {
	if errors.Is(err, ErrNotFound) {
		return v.notFound(pk)
	}
	return err
}

func (v *View[T, K]) notFound(pk K) error {
	return apikit.NotFound("%s(%v) not found", v.Name, pk)
}

// apply decodes the set_ object onto item, touches and validates it.
func (v *View[T, K]) apply(item T, set json.RawMessage) (T, error) {
	item, err := v.decodeOnto(item, set, "set_")
	if err != nil {
		return item, err
	}
	if t, ok := any(item).(Toucher); ok {
		t.Touch()
	}
	if err := apikit.Validate(item); err != nil {
		return item, within("set_", err)
	}
	return item, nil
}

// decodeOnto decodes the JSON object raw onto item. Unknown and read-only
// attributes are rejected; field names the part of the body raw came from.
func (v *View[T, K]) decodeOnto(item T, raw json.RawMessage, field string) (T, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil || attrs == nil {
		return item, apikit.InputError(apikit.ValidationError{Field: join(field, ""), Message: "must be an object"})
	}
	for _, name := range v.readOnly() {
		if _, ok := attrs[name]; ok {
			return item, apikit.InputError(apikit.ValidationError{Field: join(field, name), Message: "is read-only"})
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		return item, apikit.InputError(apikit.ValidationError{Field: join(field, ""), Message: err.Error()})
	}
	return item, nil
}

// join names a nested field. An empty parent is the whole body.
func join(parent, name string) string {
	switch {
	case parent == "" && name == "":
		return "body"
	case parent == "":
		return name
	case name == "":
		return parent
	default:
		return parent + "." + name
	}
}

// matches reports whether every attribute named in where equals its
// value. Attribute values are compared in their JSON form.
func matches(item any, where map[string]any) (bool, error) {
	for _, key := range slices.Sorted(maps.Keys(where)) {
		got, ok, err := serialize.Attr(item, key)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, apikit.InputError(apikit.ValidationError{Field: "where." + key, Message: "unknown attribute"})
		}
		norm, err := normalize(got)
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(norm, where[key]) {
			return false, nil
		}
	}
	return true, nil
}

func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(b, &out)
	return out, err
}

// within prefixes the fields of validation errors with field.
func within(field string, err error) error {
	var he *apikit.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	violations, ok := he.Meta.([]apikit.ValidationError)
	if !ok {
		return err
	}
	prefixed := lo.Map(violations, func(ve apikit.ValidationError, _ int) apikit.ValidationError {
		ve.Field = join(field, ve.Field)
		return ve
	})
	return apikit.InputError(prefixed...)
}

func (v *View[T, K]) dump(item T, action Action) (serialize.Object, error) {
	if variant, ok := v.Variants[action]; ok {
		return v.Serializer.DumpAs(item, variant)
	}
	return v.Serializer.Dump(item)
}

func (v *View[T, K]) respond(w http.ResponseWriter, r *http.Request, status int, action Action, item T) {
	obj, err := v.dump(item, action)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	apikit.Respond(w, r, status, obj)
}

func (v *View[T, K]) respondMany(w http.ResponseWriter, r *http.Request, status int, action Action, items []T) {
	out := make([]serialize.Object, 0, len(items))
	for _, item := range items {
		obj, err := v.dump(item, action)
		if err != nil {
			apikit.WriteError(w, err)
			return
		}
		out = append(out, obj)
	}
	apikit.Respond(w, r, status, out)
}
