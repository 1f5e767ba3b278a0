package types

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-logfmt/logfmt"
)

// Attributes is an insertion ordered string mapping. The order is kept so
// that the encoded form of a seed is deterministic. The zero value is an
// empty mapping ready to use. Attributes is not safe for concurrent use; Seed
// guards its own copy.
type Attributes struct {
	keys []string
	vals map[string]string
}

// NewAttributes returns a mapping filled from alternating key value pairs.
// A trailing key without a value is ignored.
func NewAttributes(keyvals ...string) *Attributes {
	a := &Attributes{}
	for i := 0; i+1 < len(keyvals); i += 2 {
		a.Set(keyvals[i], keyvals[i+1])
	}
	return a
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (string, bool) {
	if a == nil || a.vals == nil {
		return "", false
	}
	v, ok := a.vals[key]
	return v, ok
}

// GetDefault returns the value stored under key or def if there is none.
func (a *Attributes) GetDefault(key, def string) string {
	if v, ok := a.Get(key); ok {
		return v
	}
	return def
}

// Int64 parses the value stored under key. Missing or malformed values yield 0.
func (a *Attributes) Int64(key string) int64 {
	v, ok := a.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Float64 parses the value stored under key. Missing or malformed values
// yield 0.
func (a *Attributes) Float64(key string) float64 {
	v, ok := a.Get(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// Set stores value under key. A new key is appended to the key order, an
// existing key keeps its position.
func (a *Attributes) Set(key, value string) {
	if a.vals == nil {
		a.vals = make(map[string]string)
	}
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = value
}

// Delete removes key.
func (a *Attributes) Delete(key string) {
	if _, ok := a.vals[key]; !ok {
		return
	}
	delete(a.vals, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of keys.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Copy returns a deep copy.
func (a *Attributes) Copy() *Attributes {
	c := &Attributes{}
	if a == nil {
		return c
	}
	for _, k := range a.keys {
		c.Set(k, a.vals[k])
	}
	return c
}

// Equal reports whether both mappings hold the same keys in the same order
// with the same values.
func (a *Attributes) Equal(b *Attributes) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i, k := range a.Keys() {
		if b.keys[i] != k || b.vals[k] != a.vals[k] {
			return false
		}
	}
	return true
}

// MarshalLogfmt encodes the mapping as a single logfmt record, keys in
// insertion order.
func (a *Attributes) MarshalLogfmt() ([]byte, error) {
	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)
	for _, k := range a.Keys() {
		if err := enc.EncodeKeyval(k, a.vals[k]); err != nil {
			return nil, fmt.Errorf("encoding attribute %q: %w", k, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalLogfmt replaces the contents of the mapping with the first logfmt
// record found in bz.
func (a *Attributes) UnmarshalLogfmt(bz []byte) error {
	a.keys = nil
	a.vals = nil
	dec := logfmt.NewDecoder(bytes.NewReader(bz))
	if dec.ScanRecord() {
		for dec.ScanKeyval() {
			a.Set(string(dec.Key()), string(dec.Value()))
		}
	}
	if err := dec.Err(); err != nil {
		return fmt.Errorf("decoding attributes: %w", err)
	}
	return nil
}
