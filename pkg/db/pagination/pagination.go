package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// Pagination is the cursor-style request shape shared by list endpoints.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=10" validate:"gte=1,lte=100"`
}

// Cursor marks the last row of a page. Row ids are snowflakes, so
// walking them ascending is also chronological and a single id is
// enough to resume.
type Cursor struct {
	LastID string `json:"last_id"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Page trims a size+1 fetch down to one page. The extra row only
// signals that another page exists; it is never returned to the caller.
func Page[T any](items []T, size int, lastID func(T) string) ([]T, *PageInfo) {
	if size <= 0 || len(items) == 0 {
		return items, &PageInfo{}
	}

	info := &PageInfo{}
	if len(items) > size {
		info.HasMore = true
		items = items[:size]
	}

	if token, err := EncodeCursor(Cursor{LastID: lastID(items[len(items)-1])}); err == nil {
		info.NextPageToken = token
	}
	return items, info
}
