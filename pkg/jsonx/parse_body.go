package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var ErrEmptyBody = errors.New("empty body")

// ParseJSONBody decodes a single JSON value from an HTTP request body into
// dst. Unknown fields are accepted and ignored; required-field checks are
// the caller's job (pair with Field[T] for presence tracking).
//
// Reader is capped at 1MB; an empty body yields ErrEmptyBody.
func ParseJSONBody[T any](r *http.Request, dst *T) error {
	if r == nil || r.Body == nil {
		return ErrEmptyBody
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(bytesTrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(bytes.TrimSpace(body), dst)
}
