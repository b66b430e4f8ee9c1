package serialize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit/serialize"
)

func TestPick(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"name":  "ada",
		"email": "ada@example.com",
		"address": map[string]any{
			"city":    "London",
			"country": "UK",
		},
		"posts": []any{
			map[string]any{"title": "a", "body": "x"},
			map[string]any{"title": "b", "body": "y"},
		},
	}

	st := serialize.Struct("name").
		Set("address", serialize.Struct("city")).
		Set("posts", serialize.Struct("title"))

	obj, err := serialize.Pick(data, st)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ada","address":{"city":"London"},"posts":[{"title":"a"},{"title":"b"}]}`, mustJSON(t, obj))
}

func TestPickMissingKey(t *testing.T) {
	t.Parallel()

	_, err := serialize.Pick(map[string]any{"name": "ada"}, serialize.Struct("name", "age"))
	require.ErrorIs(t, err, serialize.ErrMissingField)

	var se *serialize.SerializationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "age", se.Field)
}

func TestPickScalarUnderNested(t *testing.T) {
	t.Parallel()

	obj, err := serialize.Pick(map[string]any{"n": 3}, serialize.Struct().Set("n", serialize.Struct("x")))
	require.NoError(t, err)
	assert.Equal(t, `{"n":3}`, mustJSON(t, obj))
}

func TestPickNilStructure(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		obj, err := serialize.Pick(map[string]any{"name": "ada"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, obj.Len())
	})

	st := serialize.Struct().Set("address", (*serialize.Structure)(nil))
	obj, err := serialize.Pick(map[string]any{"address": map[string]any{"city": "London"}}, st)
	require.NoError(t, err)
	assert.Equal(t, `{"address":{"city":"London"}}`, mustJSON(t, obj))
}
