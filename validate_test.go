package apikit_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit"
)

func TestConstraintViolations(t *testing.T) {
	t.Parallel()

	type address struct {
		City string `json:"city" required:"true"`
	}
	type Audit struct {
		Note string `json:"note" maxLength:"4"`
	}
	type req struct {
		Audit
		Name    string   `json:"name" required:"true" minLength:"3" maxLength:"8"`
		Slug    string   `json:"slug" pattern:"^[a-z]+$"`
		Age     int      `json:"age" minimum:"0" maximum:"130"`
		Score   float64  `json:"score,omitempty" maximum:"1.5"`
		Count   uint     `json:"count" minimum:"1"`
		Role    string   `json:"role" enum:"admin,member"`
		Tags    []string `json:"tags" minItems:"1" maxItems:"2"`
		Address address  `json:"address"`
		Skipped string   `json:"-" required:"true"`
		hidden  string   `required:"true"` //nolint:unused // exercised through reflection
	}

	tests := map[string]struct {
		input req
		want  []string
	}{
		"valid": {
			input: req{Name: "ada", Slug: "ok", Age: 36, Count: 1, Role: "admin", Tags: []string{"x"}, Address: address{City: "London"}},
		},
		"every rule": {
			input: req{
				Audit: Audit{Note: "too long"},
				Name:  "a",
				Slug:  "NOPE",
				Age:   200,
				Score: 2,
				Role:  "root",
				Tags:  []string{"a", "b", "c"},
			},
			want: []string{
				"note: must be at most 4 characters",
				"name: must be at least 3 characters",
				"slug: must match pattern ^[a-z]+$",
				"age: must be at most 130",
				"score: must be at most 1.5",
				"count: must be at least 1",
				"role: must be one of [admin,member]",
				"tags: must have at most 2 items",
				"address.city: is required",
			},
		},
		"required short circuits": {
			input: req{Count: 1, Role: "member", Tags: []string{"x"}, Address: address{City: "Paris"}},
			want:  []string{"name: is required"},
		},
		"too few items": {
			input: req{Name: "ada", Count: 1, Role: "member", Address: address{City: "Paris"}},
			want:  []string{"tags: must have at least 1 items"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got []string
			for _, v := range apikit.ConstraintViolations(&tc.input) {
				got = append(got, v.Error())
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConstraintViolations_body_prefix(t *testing.T) {
	t.Parallel()

	type req struct {
		ID   string `path:"id" minLength:"2"`
		Body struct {
			Title string `json:"title" required:"true"`
		}
	}

	errs := apikit.ConstraintViolations(&req{ID: "1"})
	require.Len(t, errs, 2)
	assert.Equal(t, "ID", errs[0].Field)
	assert.Equal(t, "body.title", errs[1].Field)
}

func TestConstraintViolations_non_struct(t *testing.T) {
	t.Parallel()

	var nilPtr *struct{}
	assert.Nil(t, apikit.ConstraintViolations(42))
	assert.Nil(t, apikit.ConstraintViolations(nilPtr))
}

type signup struct {
	Password string `json:"password" required:"true"`
	Confirm  string `json:"confirm"`
}

func (s *signup) Validate() error {
	if s.Password != s.Confirm {
		return apikit.ValidationError{Field: "confirm", Message: "does not match"}
	}
	return nil
}

type teapot struct{}

func (*teapot) Validate() error { return apikit.Error(http.StatusTeapot, "short and stout") }

type opaque struct{}

func (*opaque) Validate() error { return errors.New("nope") }

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input  any
		status int
		meta   []apikit.ValidationError
	}{
		"valid": {
			input: &signup{Password: "x", Confirm: "x"},
		},
		"constraints first": {
			input:  &signup{Confirm: "x"},
			status: http.StatusBadRequest,
			meta:   []apikit.ValidationError{{Field: "password", Message: "is required"}},
		},
		"self validation": {
			input:  &signup{Password: "x", Confirm: "y"},
			status: http.StatusBadRequest,
			meta:   []apikit.ValidationError{{Field: "confirm", Message: "does not match"}},
		},
		"http error kept": {
			input:  &teapot{},
			status: http.StatusTeapot,
		},
		"plain error": {
			input:  &opaque{},
			status: http.StatusBadRequest,
			meta:   []apikit.ValidationError{{Message: "nope"}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := apikit.Validate(tc.input)
			if tc.status == 0 {
				require.NoError(t, err)
				return
			}
			var he *apikit.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.status, he.Status)
			if tc.meta != nil {
				assert.Equal(t, apikit.InvalidBodyMessage, he.Message)
				assert.Equal(t, apikit.CodeInputError, he.Code)
				assert.Equal(t, tc.meta, he.Meta)
			}
		})
	}
}

func TestValidateBody(t *testing.T) {
	t.Parallel()

	h := apikit.ValidateBody[signup](http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, found := apikit.ValidatedBody[signup](r)
		require.True(t, found)
		apikit.WriteJSON(w, http.StatusOK, map[string]string{"password": body.Password})
	}))

	tests := map[string]struct {
		body   string
		status int
		want   string
	}{
		"valid": {
			body:   `{"password":"pw","confirm":"pw"}`,
			status: http.StatusOK,
			want:   `{"password":"pw"}`,
		},
		"missing field": {
			body:   `{"confirm":"pw"}`,
			status: http.StatusBadRequest,
			want:   `{"error":"invalid data in body","code":"INPUT_ERROR","meta":[{"field":"password","message":"is required"}]}`,
		},
		"malformed": {
			body:   `{"password":`,
			status: http.StatusBadRequest,
			want:   `{"error":"invalid data in body","code":"INPUT_ERROR","meta":[{"field":"body","message":"unexpected EOF"}]}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))

			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body   string
		limit  int64
		status int
		want   signup
	}{
		"valid": {
			body: `{"password":"pw"}`,
			want: signup{Password: "pw"},
		},
		"empty": {},
		"malformed": {
			body:   `{"password":`,
			status: http.StatusBadRequest,
		},
		"too large": {
			body:   `{"password":"0123456789"}`,
			limit:  4,
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.limit > 0 {
				r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, tc.limit)
			}

			var got signup
			err := apikit.DecodeJSON(r, &got)
			if tc.status == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
				return
			}
			assert.Equal(t, tc.status, apikit.ErrorStatus(err))
		})
	}
}

func TestValidatedBody_missing(t *testing.T) {
	t.Parallel()

	_, found := apikit.ValidatedBody[signup](httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, found)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/", apikit.WithBodyLimit(16))
	require.NoError(t, reg.Register("signup", http.MethodPost, apikit.ValidateBody[signup](http.HandlerFunc(ok))))
	h := reg.Routes()[0].Handler

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"password":"a-very-long-password"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body exceeds 16 bytes","code":"BODY_TOO_LARGE"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"password":"a-very-long-password"}`))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, "streamed bodies are cut off")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"password":"a"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
