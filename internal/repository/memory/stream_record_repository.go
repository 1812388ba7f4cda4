package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type streamRecord struct {
	mu         sync.Mutex
	text       strings.Builder
	status     textstream.Status
	generation int64
	owner      textstream.Owner
	updatedAt  time.Time
}

// StreamRecordRepository keeps stream records in process memory. Each record
// carries its own mutex, so appends to different ids never contend.
type StreamRecordRepository struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewStreamRecordRepository() *StreamRecordRepository {
	// Records are never evicted; deletion belongs to the owning record.
	return &StreamRecordRepository{
		cache: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

func (r *StreamRecordRepository) Create(ctx context.Context) (string, error) {
	return r.CreateOwned(ctx, textstream.Owner{})
}

func (r *StreamRecordRepository) CreateOwned(ctx context.Context, owner textstream.Owner) (string, error) {
	rec := &streamRecord{
		status:    textstream.StatusPending,
		owner:     owner,
		updatedAt: r.now(),
	}
	for {
		id := uuid.NewString()
		if err := r.cache.Add(id, rec, cache.NoExpiration); err == nil {
			return id, nil
		}
	}
}

func (r *StreamRecordRepository) get(id string) (*streamRecord, error) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, textstream.ErrNotFound
	}
	return x.(*streamRecord), nil
}

func (r *StreamRecordRepository) Append(ctx context.Context, id, fragment string) (int64, error) {
	rec, err := r.get(id)
	if err != nil {
		return 0, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status.IsTerminal() {
		return rec.generation, textstream.ErrTerminalState
	}
	rec.text.WriteString(fragment)
	rec.status = textstream.StatusStreaming
	rec.generation++
	rec.updatedAt = r.now()
	return rec.generation, nil
}

func (r *StreamRecordRepository) Finalize(ctx context.Context, id string, outcome textstream.Status) error {
	if outcome != textstream.StatusDone && outcome != textstream.StatusError {
		return textstream.ErrInvalidOutcome
	}
	rec, err := r.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status.IsTerminal() {
		return nil
	}
	rec.status = outcome
	rec.updatedAt = r.now()
	return nil
}

func (r *StreamRecordRepository) Read(ctx context.Context, id string) (textstream.Snapshot, error) {
	rec, err := r.get(id)
	if err != nil {
		return textstream.Snapshot{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return textstream.Snapshot{
		ID:         id,
		Text:       rec.text.String(),
		Status:     rec.status,
		Generation: rec.generation,
	}, nil
}

func (r *StreamRecordRepository) FindOwner(ctx context.Context, id string) (textstream.Owner, error) {
	rec, err := r.get(id)
	if err != nil {
		return textstream.Owner{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.owner, nil
}

func (r *StreamRecordRepository) ExpireIdle(ctx context.Context, before time.Time) ([]string, error) {
	var expired []string
	for id, item := range r.cache.Items() {
		rec := item.Object.(*streamRecord)
		rec.mu.Lock()
		if rec.status.IsLive() && rec.updatedAt.Before(before) {
			rec.status = textstream.StatusTimeout
			rec.updatedAt = r.now()
			expired = append(expired, id)
		}
		rec.mu.Unlock()
	}
	return expired, nil
}
