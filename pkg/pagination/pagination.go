// Package pagination implements the keyset cursors used by the book and
// member listings. Rows are ordered newest first by (created_at, id) and a
// cursor names the last row of the previous page.
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
	// DefaultLimit is the page size of the catalog and member listings.
	DefaultLimit = 20
	// MaxLimit caps a single page; the popular and recent lists share it.
	MaxLimit = 100
)

// ErrInvalidCursor is returned for cursors this package did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is the page request taken from ?limit= and ?cursor=.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the keyset position after which the next page starts.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer asks for one extra row so Trim can tell whether another
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts rows fetched with LimitWithBuffer down to the page and returns
// the cursor of the following page, or "" when rows was the last page.
func Trim[T any](rows []T, limit int, position func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(position(rows[limit-1]))
}

// EncodeCursor renders a cursor safe to pass back in a query string.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes value. An empty value means the first page and yields
// a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	stamp, rawID, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}
