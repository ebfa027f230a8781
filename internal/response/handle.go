package response

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hailworks/jnmcp/internal/cache"
	"github.com/hailworks/jnmcp/internal/errors"
)

// handlePrefix namespaces handle keys inside the shared cache store so
// they can never collide with response-cache keys.
const handlePrefix = "handle:"

// handleRecord is the stored form of an overflow result.
type handleRecord struct {
	Tag       string `json:"tag"` // owning entity/operation, for traceability
	CreatedAt int64  `json:"created_at"`
	Data      any    `json:"data"`
}

// HandleStore parks full results that are too large to inline and serves
// them back by opaque reference until the TTL elapses. Eviction is the
// store's job; nothing here deletes handles explicitly.
type HandleStore struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewHandleStore wraps a cache store with the fixed handle TTL.
func NewHandleStore(store cache.Store, ttl time.Duration) *HandleStore {
	return &HandleStore{store: store, ttl: ttl, now: time.Now}
}

// TTL reports the fixed handle lifetime, advertised as expires_in_sec.
func (h *HandleStore) TTL() time.Duration {
	return h.ttl
}

// Put stores data under a fresh opaque handle and returns the handle.
// Handles are ULIDs over crypto/rand: unpredictable, not guessable
// sequential counters.
func (h *HandleStore) Put(ctx context.Context, data any, tag string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(h.now()), entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	handle := "h_" + id.String()

	record := handleRecord{
		Tag:       tag,
		CreatedAt: h.now().Unix(),
		Data:      data,
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	if err := h.store.Set(ctx, handlePrefix+handle, encoded, h.ttl); err != nil {
		return "", errors.NewCacheUnavailable(err)
	}
	return handle, nil
}

// Get retrieves the stored result for a handle, optionally narrowed by a
// field spec so a second round-trip can reduce fields without an upstream
// re-fetch. An expired or unknown handle yields HANDLE_EXPIRED.
func (h *HandleStore) Get(ctx context.Context, handle, fields string) (any, string, error) {
	encoded, ok, err := h.store.Get(ctx, handlePrefix+handle)
	if err != nil {
		return nil, "", errors.NewCacheUnavailable(err)
	}
	if !ok {
		return nil, "", errors.NewHandleExpired(handle)
	}

	var record handleRecord
	if err := json.Unmarshal(encoded, &record); err != nil {
		return nil, "", errors.NewInternal(err)
	}

	data := record.Data
	if tree := ParseFields(fields); tree != nil {
		rows, single := asRows(data)
		projected := make([]any, 0, len(rows))
		for _, row := range rows {
			if v, kept := applyFields(row, tree); kept {
				projected = append(projected, v)
			}
		}
		if single {
			if len(projected) == 1 {
				data = projected[0]
			} else {
				data = nil
			}
		} else {
			data = projected
		}
	}

	return data, record.Tag, nil
}
