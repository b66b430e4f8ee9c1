package pagination_test

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit/pagination"
)

func defaults(t *testing.T) pagination.Config {
	t.Helper()
	var cfg pagination.Config
	require.NoError(t, cfg.Finalize())
	return cfg
}

func TestFromQuery(t *testing.T) {
	cfg := defaults(t)

	tests := map[string]struct {
		query string
		want  pagination.Params
	}{
		"empty":           {query: "", want: pagination.Params{Offset: 0, Limit: 10}},
		"explicit":        {query: "pagination_offset=2&pagination_limit=5", want: pagination.Params{Offset: 2, Limit: 5}},
		"malformed":       {query: "pagination_offset=x&pagination_limit=y", want: pagination.Params{Offset: 0, Limit: 10}},
		"negative offset": {query: "pagination_offset=-3", want: pagination.Params{Offset: 0, Limit: 10}},
		"limit clamped":   {query: "pagination_limit=1000", want: pagination.Params{Offset: 0, Limit: 100}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, pagination.FromQuery(values, cfg))
		})
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	items := []int{0, 1, 2, 3, 4, 5, 6}

	tests := map[string]struct {
		params pagination.Params
		want   []int
	}{
		"first page":  {params: pagination.Params{Offset: 0, Limit: 3}, want: []int{0, 1, 2}},
		"second page": {params: pagination.Params{Offset: 1, Limit: 3}, want: []int{3, 4, 5}},
		"last page":   {params: pagination.Params{Offset: 2, Limit: 3}, want: []int{6}},
		"past end":    {params: pagination.Params{Offset: 5, Limit: 3}, want: []int{}},
		"zero limit":  {params: pagination.Params{Offset: 0, Limit: 0}, want: []int{}},
		"overflowing offset": {
			params: pagination.Params{Offset: 6148914691236517205, Limit: 3},
			want:   []int{},
		},
		"max offset": {params: pagination.Params{Offset: math.MaxInt, Limit: 2}, want: []int{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, pagination.Paginate(items, tc.params))
		})
	}
}

func TestStart(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		params pagination.Params
		want   int
	}{
		"first page": {params: pagination.Params{Offset: 0, Limit: 10}, want: 0},
		"third page": {params: pagination.Params{Offset: 2, Limit: 10}, want: 20},
		"overflow":   {params: pagination.Params{Offset: math.MaxInt / 2, Limit: 3}, want: math.MaxInt},
		"negative":   {params: pagination.Params{Offset: -1, Limit: 10}, want: 0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.params.Start())
		})
	}
}

func TestPaginateHugeQueryOffset(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("pagination_offset=6148914691236517205&pagination_limit=3")
	require.NoError(t, err)

	page := pagination.FromQuery(values, defaults(t))
	assert.Empty(t, pagination.Paginate([]int{1, 2, 3, 4, 5}, page))
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg pagination.Config
		require.NoError(t, cfg.Finalize())
		assert.Equal(t, 10, cfg.DefaultLimit)
		assert.Equal(t, 100, cfg.MaxLimit)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv(pagination.EnvDefaultLimit, "25")
		t.Setenv(pagination.EnvMaxLimit, "50")

		var cfg pagination.Config
		require.NoError(t, cfg.Finalize())
		assert.Equal(t, 25, cfg.DefaultLimit)
		assert.Equal(t, 50, cfg.MaxLimit)
	})

	t.Run("default above max", func(t *testing.T) {
		cfg := pagination.Config{DefaultLimit: 200, MaxLimit: 100}
		assert.Error(t, cfg.Finalize())
	})
}

func TestConfigMerge(t *testing.T) {
	t.Parallel()

	cfg := pagination.Config{DefaultLimit: 10, MaxLimit: 100}
	cfg.Merge(&pagination.Config{MaxLimit: 20})

	assert.Equal(t, pagination.Config{DefaultLimit: 10, MaxLimit: 20}, cfg)
}
