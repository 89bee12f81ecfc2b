// Package pagination implements stateless, resumable paging over collections.
//
// A cursor is an opaque token that encodes a single non-negative offset. The
// token is the URL-safe, unpadded base64 form of the JSON object
// {"offset":N}; callers must treat it as opaque. Decoding an empty token
// yields offset 0, so the first page is always requested without a cursor.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor is returned for tokens that cannot be decoded or that
// carry a negative offset.
var ErrInvalidCursor = errors.New("pagination: invalid cursor")

type cursorPayload struct {
	Offset int `json:"offset"`
}

// EncodeCursor produces the token for offset. Negative offsets are clamped
// to zero.
func EncodeCursor(offset int) string {
	if offset < 0 {
		offset = 0
	}
	b, _ := json.Marshal(cursorPayload{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor reverses EncodeCursor. An empty token decodes to 0.
func DecodeCursor(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var p struct {
		Offset *int `json:"offset"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if p.Offset == nil {
		return 0, fmt.Errorf("%w: missing offset", ErrInvalidCursor)
	}
	if *p.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidCursor, *p.Offset)
	}
	return *p.Offset, nil
}
