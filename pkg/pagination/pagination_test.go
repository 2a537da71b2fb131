package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"explicit", "?page=3&per_page=10", Params{Page: 3, PerPage: 10, Offset: 20}},
		{"per page above max", "?per_page=500", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"negative page", "?page=-1", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"garbage", "?page=x&per_page=y", Params{Page: 1, PerPage: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/products"+tt.query, nil)
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}

func TestNewResult(t *testing.T) {
	res := NewResult([]int{4, 5, 6}, 7, Params{Page: 2, PerPage: 3, Offset: 3})

	assert.Equal(t, []int{4, 5, 6}, res.Data)
	assert.Equal(t, 7, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.True(t, res.HasPrev)
}

func TestNewResult_EmptyDataIsNotNil(t *testing.T) {
	res := NewResult[string](nil, 0, DefaultParams())

	assert.NotNil(t, res.Data)
	assert.Equal(t, 0, res.TotalPages)
	assert.False(t, res.HasNext)
	assert.False(t, res.HasPrev)
}
