// Package history keeps the append-only log of completed translations.
// Records are msgpack-encoded into the kv layer under monotonic
// sequence keys, so listing returns them in insertion order, including
// across restarts.
package history

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/voxlate/voxlate/pkg/kv"
)

// Record is one completed translation.
type Record struct {
	ID             string    `msgpack:"id" json:"id"`
	OriginalText   string    `msgpack:"original_text" json:"originalText"`
	TranslatedText string    `msgpack:"translated_text" json:"translatedText"`
	SourceLanguage string    `msgpack:"source_language" json:"sourceLanguage"`
	TargetLanguage string    `msgpack:"target_language" json:"targetLanguage"`
	Timestamp      time.Time `msgpack:"timestamp" json:"timestamp"`
}

const keyspace = "history"

// Log is the translation history over a kv.Store.
type Log struct {
	store kv.Store

	mu   sync.Mutex
	next uint64
}

// Open loads the log, resuming the sequence after the last stored
// record.
func Open(ctx context.Context, store kv.Store) (*Log, error) {
	l := &Log{store: store}
	for e, err := range store.List(ctx, kv.Key{keyspace}) {
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if len(e.Key) != 2 {
			continue
		}
		seq, err := strconv.ParseUint(e.Key[1], 16, 64)
		if err != nil {
			continue
		}
		if seq >= l.next {
			l.next = seq + 1
		}
	}
	return l, nil
}

// Append stores rec at the end of the log. A zero ID or Timestamp is
// filled in. The stored record is returned.
func (l *Log) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := msgpack.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("history: encode record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	key := kv.Key{keyspace, seqSegment(l.next)}
	if err := l.store.Set(ctx, key, data); err != nil {
		return Record{}, fmt.Errorf("history: store record: %w", err)
	}
	l.next++
	return rec, nil
}

// All yields every record in insertion order.
func (l *Log) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for e, err := range l.store.List(ctx, kv.Key{keyspace}) {
			if err != nil {
				yield(Record{}, err)
				return
			}
			var rec Record
			if err := msgpack.Unmarshal(e.Value, &rec); err != nil {
				if !yield(Record{}, fmt.Errorf("history: decode %s: %w", e.Key, err)) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Records returns the whole log as a slice, oldest first.
func (l *Log) Records(ctx context.Context) ([]Record, error) {
	var out []Record
	for rec, err := range l.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Clear removes every record and resets the sequence.
func (l *Log) Clear(ctx context.Context) error {
	var keys []kv.Key
	for e, err := range l.store.List(ctx, kv.Key{keyspace}) {
		if err != nil {
			return fmt.Errorf("history: scan: %w", err)
		}
		keys = append(keys, e.Key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.BatchDelete(ctx, keys); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	l.next = 0
	return nil
}

// seqSegment renders seq fixed-width so lexicographic key order equals
// numeric order.
func seqSegment(seq uint64) string {
	return fmt.Sprintf("%016x", seq)
}
