package jsonx

import "encoding/json"

// Field[T] tracks key presence alongside the decoded value:
//   - IsSet() == true  => the key appeared in the payload (even as null)
//   - IsNull() == true => the key appeared with an explicit null
//
// This lets callers distinguish "field omitted" from "field set to the
// zero value", which encoding/json alone cannot.
type Field[T any] struct {
	set bool
	val *T
}

func (o Field[T]) IsSet() bool  { return o.set }
func (o Field[T]) IsNull() bool { return o.set && o.val == nil }
func (o Field[T]) Value() *T    { return o.val }

// Get returns the decoded value and whether a non-null value was present.
func (o Field[T]) Get() (T, bool) {
	if o.val == nil {
		var zero T
		return zero, false
	}
	return *o.val, true
}

func (o *Field[T]) UnmarshalJSON(b []byte) error {
	if string(bytesTrimSpace(b)) == "null" {
		o.set, o.val = true, nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.set, o.val = true, &v
	return nil
}

func bytesTrimSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\n' || b[i] == '\t' || b[i] == '\r') {
		i++
	}
	j := len(b) - 1
	for j >= i && (b[j] == ' ' || b[j] == '\n' || b[j] == '\t' || b[j] == '\r') {
		j--
	}
	return b[i : j+1]
}
