package apikit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"time"
)

// paramSources maps binding tags to the sentinel reported on failure.
var paramSources = []struct {
	tag string
	err error
	get func(r *http.Request, name string) string
}{
	{"path", ErrBindPath, func(r *http.Request, name string) string { return r.PathValue(name) }},
	{"query", ErrBindQuery, func(r *http.Request, name string) string { return r.URL.Query().Get(name) }},
	{"header", ErrBindHeader, func(r *http.Request, name string) string { return r.Header.Get(name) }},
}

// decodeRequest creates a new Req value and populates it from the HTTP
// request. A struct with a Body field takes its body from the JSON payload
// and its other fields from path, query and header tags; a struct without
// parameter tags is decoded from the payload as a whole.
func decodeRequest[Req any](r *http.Request) (*Req, error) {
	req := new(Req)
	t := reflect.TypeFor[Req]()
	if t == reflect.TypeFor[Void]() {
		return req, nil
	}

	v := reflect.ValueOf(req).Elem()
	if t.Kind() != reflect.Struct {
		if err := decodeBody(r, req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
		return req, nil
	}

	if err := bindParams(v, r); err != nil {
		return nil, err
	}

	switch {
	case hasBodyField(t):
		if err := decodeBody(r, v.FieldByName("Body").Addr().Interface()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	case !hasParamTags(t):
		if err := decodeBody(r, req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	}
	return req, nil
}

func bindParams(v reflect.Value, r *http.Request) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "Body" {
			continue
		}
		for _, src := range paramSources {
			name := f.Tag.Get(src.tag)
			if name == "" {
				continue
			}
			val := src.get(r, name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val == "" {
				continue
			}
			if err := setFieldValue(v.Field(i), val); err != nil {
				return fmt.Errorf("%w: %s: %w", src.err, name, err)
			}
		}
	}
	return nil
}

// hasParamTags reports whether t has fields bound from path, query or headers.
func hasParamTags(t reflect.Type) bool {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		for _, src := range paramSources {
			if f.Tag.Get(src.tag) != "" {
				return true
			}
		}
	}
	return false
}

func hasBodyField(t reflect.Type) bool {
	_, ok := t.FieldByName("Body")
	return ok
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// decodeBody decodes the request body as JSON into target. An empty body
// leaves target untouched.
// DecodeJSON decodes the JSON request body into target. An empty body
// leaves target unchanged. Oversized bodies are reported as 413 and
// malformed ones as a 400 INPUT_ERROR.
func DecodeJSON(r *http.Request, target any) error {
	err := decodeBody(r, target)
	if err == nil {
		return nil
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return err
	}
	return InputError(ValidationError{Field: "body", Message: err.Error()})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return bodyTooLarge(mbe.Limit)
	}
	return err
}
