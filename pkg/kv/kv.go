// Package kv is the persistence layer under the translation history
// and other durable state. Keys are hierarchical paths ([]string
// segments, joined with '/'), values are opaque bytes. A BadgerDB
// implementation covers durable storage and an in-memory one covers
// tests.
package kv

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded representation. Segments
// must not contain it.
const Separator = '/'

// Key is a hierarchical path, e.g. Key{"history", "0000000000000007"}.
type Key []string

// String renders the key in its encoded form.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Append returns a new key with extra segments added.
func (k Key) Append(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// Entry is one key-value pair, as listed or batch-written.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores key/value, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List yields all entries under prefix, in lexicographic order of
	// the encoded key. A prefix only matches whole segments: listing
	// ["a"] does not include ["ab"].
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchSet writes all entries atomically.
	BatchSet(ctx context.Context, entries []Entry) error

	// BatchDelete removes all keys atomically.
	BatchDelete(ctx context.Context, keys []Key) error

	// Close releases the store.
	Close() error
}

func encodeKey(k Key) []byte {
	return []byte(strings.Join(k, string(Separator)))
}

func decodeKey(b []byte) Key {
	parts := bytes.Split(b, []byte{Separator})
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = string(p)
	}
	return k
}

// scanPrefix returns the encoded byte prefix for List. A trailing
// separator keeps ["a"] from matching ["ab"].
func scanPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return append(encodeKey(prefix), Separator)
}
