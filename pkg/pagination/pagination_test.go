package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsPageSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, Params{}.PageSize())
	assert.Equal(t, MaxLimit, Params{Limit: 5000}.PageSize())
	assert.Equal(t, 7, Params{Limit: 7}.PageSize())
	assert.Equal(t, 8, Params{Limit: 7}.FetchSize())
}

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC), ID: uuid.New()}
	token := c.Encode()
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	got, err := Params{Cursor: token}.Position()
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.ID, got.ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm8tc2VwYXJhdG9y", Cursor{}.Encode()[:4]} {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
	c, err := Params{Cursor: "  "}.Position()
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestSplit(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	key := func(id uuid.UUID) Cursor { return Cursor{ID: id} }

	page, next := Split(ids, Params{Limit: 2}, key)
	assert.Len(t, page, 2)
	decoded, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, ids[1], decoded.ID)

	page, next = Split(ids, Params{Limit: 3}, key)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
}
