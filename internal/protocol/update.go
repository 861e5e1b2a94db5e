package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformed is returned for frames that are not a JSON object.
var ErrMalformed = errors.New("malformed message")

// Update is one inbound state message: a flat object of keys to values.
// Numbers are kept as json.Number so integers survive untouched.
type Update map[string]any

// DecodeUpdate parses a text frame into an Update. Anything other than a
// single JSON object yields an error wrapping ErrMalformed.
func DecodeUpdate(data []byte) (Update, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return Update(obj), nil
}

// DecodeBackup parses a configuration backup file. The result is sent
// verbatim as the restore payload.
func DecodeBackup(data []byte) (map[string]any, error) {
	return decodeObject(data)
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return obj, nil
}

// Keys returns the keys of the update in sorted order.
func (u Update) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is present, even with a null value.
func (u Update) Has(key string) bool {
	_, ok := u[key]
	return ok
}

// String returns the value of key when it is a string or a number.
func (u Update) String(key string) (string, bool) {
	switch v := u[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}
