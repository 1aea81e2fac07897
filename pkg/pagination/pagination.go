// Package pagination implements keyset pages over (created_at, id) ordered
// newest first. Cursors are opaque, URL-safe tokens.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor wraps every cursor decoding failure.
var ErrInvalidCursor = errors.New("invalid cursor")

type Params struct {
	Limit  int
	Cursor string
}

// PageSize clamps Limit into [1, MaxLimit], using DefaultLimit when unset.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// FetchSize is PageSize plus the look-ahead row that reveals a next page.
func (p Params) FetchSize() int {
	return p.PageSize() + 1
}

// Position decodes the cursor; a blank cursor means the first page.
func (p Params) Position() (*Cursor, error) {
	if strings.TrimSpace(p.Cursor) == "" {
		return nil, nil
	}
	return Decode(p.Cursor)
}

// Cursor is the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func Decode(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: parsed}, nil
}

// Split trims rows fetched with FetchSize down to one page and returns the
// cursor for the next page, or "" on the last page.
func Split[T any](rows []T, p Params, key func(T) Cursor) ([]T, string) {
	size := p.PageSize()
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, key(rows[size-1]).Encode()
}
