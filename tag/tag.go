// Package tag defines the key/value label mapping attached to recorded
// measurements, the projection of a full tag set onto a view's declared
// columns, and the canonical row-key encoding used by view row stores.
package tag

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Map is an unordered mapping from tag key to tag value. Keys are unique
// by construction. The engine treats keys and values as opaque strings
// with no schema validation.
type Map map[string]string

// Clone returns an independent copy of m. A nil map clones to nil.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the keys of m in lexical order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Project restricts m to the given keys. A key absent from m is
// materialized with the empty string, so the projected map always holds
// exactly the declared key set: two maps that agree on every declared key
// project identically regardless of any other tags present. This is what
// makes row identity depend only on the declared columns.
func Project(m Map, keys []string) Map {
	out := make(Map, len(keys))
	for _, k := range keys {
		out[k] = m[k]
	}
	return out
}

// EncodeKey serializes the values of m for the given keys into a canonical
// row-store key. Each value is uvarint length-prefixed, so the encoding is
// injective for a fixed key set: no two distinct projections collide.
// Keys absent from m encode as the empty string, matching Project.
//
// keys must be the view's declared columns in their declared order.
func EncodeKey(m Map, keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	size := 0
	for _, k := range keys {
		size += binary.MaxVarintLen32 + len(m[k])
	}
	buf := make([]byte, 0, size)
	for _, k := range keys {
		v := m[k]
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	return string(buf)
}

// DecodeKey reverses EncodeKey, reconstructing the projected map for the
// given declared columns. Returns an error if the key is malformed or does
// not contain exactly one value per column.
func DecodeKey(key string, keys []string) (Map, error) {
	out := make(Map, len(keys))
	rest := []byte(key)
	for _, k := range keys {
		n, read := binary.Uvarint(rest)
		if read <= 0 {
			return nil, fmt.Errorf("row key truncated before column %q", k)
		}
		rest = rest[read:]
		if uint64(len(rest)) < n {
			return nil, fmt.Errorf("row key value for column %q truncated: want %d bytes, have %d", k, n, len(rest))
		}
		out[k] = string(rest[:n])
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("row key has %d trailing bytes after %d columns", len(rest), len(keys))
	}
	return out, nil
}
