package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/model"
)

type fakeResults struct {
	tags []pgconn.CommandTag
	err  error
	i    int
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	tag := pgconn.NewCommandTag("INSERT 0 1")
	if r.i < len(r.tags) {
		tag = r.tags[r.i]
	}
	r.i++
	return tag, nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (r *fakeResults) QueryRow() pgx.Row         { return nil }
func (r *fakeResults) Close() error              { return nil }

type fakeSender struct {
	mu      sync.Mutex
	batches [][]*pgx.QueuedQuery
	tags    []pgconn.CommandTag
	err     error
}

func (s *fakeSender) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b.QueuedQueries)
	return &fakeResults{tags: s.tags, err: s.err}
}

func (s *fakeSender) queued() []*pgx.QueuedQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*pgx.QueuedQuery
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *fakeSender) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

var testSeries = model.SeriesSummary{
	ID:         "2843071",
	Title:      "Team Liquid vs NAVI",
	Tournament: "IEM Cologne",
	Teams:      []string{"Team Liquid", "NAVI"},
}

func TestWriter_EmitRowShape(t *testing.T) {
	db := &fakeSender{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	w := New(Config{BatchSize: 10, FlushInterval: time.Second, BufferSize: 100}, db, clock, nil)

	w.Emit(event.MarketCreated(testSeries))
	w.Emit(event.Discovery([]model.SeriesSummary{testSeries}))
	w.flush(context.Background())

	q := db.queued()
	require.Len(t, q, 2)

	args := q[0].Arguments
	require.Len(t, args, 6)
	assert.Len(t, args[0], 36)
	assert.Equal(t, "market_created", args[1])
	assert.Equal(t, "2843071", args[2])
	assert.Equal(t, model.MarketID("2843071"), args[3])
	assert.Equal(t, clock.Now().UTC(), args[5])

	var payload event.MarketCreatedPayload
	require.NoError(t, json.Unmarshal(args[4].([]byte), &payload))
	assert.Equal(t, "IEM Cologne", payload.Tournament)

	// Discovery summaries are not scoped to a series.
	assert.Equal(t, "game_event", q[1].Arguments[1])
	assert.Nil(t, q[1].Arguments[2])
	assert.Nil(t, q[1].Arguments[3])
	assert.NotEqual(t, args[0], q[1].Arguments[0])

	stats := w.Stats()
	assert.Equal(t, int64(2), stats.Inserts)
	assert.Equal(t, int64(1), stats.Flushes)
}

func TestWriter_FlushesInBatchSizeChunks(t *testing.T) {
	db := &fakeSender{}
	w := New(Config{BatchSize: 2, FlushInterval: time.Second, BufferSize: 100}, db, clockwork.NewFakeClock(), nil)

	for range 5 {
		w.Emit(event.SeriesState("1", time.Now(), event.GameState{Map: "de_mirage", Round: 1}))
	}
	w.flush(context.Background())

	assert.Equal(t, 3, db.batchCount())
	assert.Len(t, db.queued(), 5)
}

func TestWriter_CountsConflicts(t *testing.T) {
	db := &fakeSender{tags: []pgconn.CommandTag{pgconn.NewCommandTag("INSERT 0 1"), pgconn.NewCommandTag("INSERT 0 0")}}
	w := New(Config{BatchSize: 10, BufferSize: 10}, db, clockwork.NewFakeClock(), nil)

	w.Emit(event.MarketCreated(testSeries))
	w.Emit(event.MarketCreated(testSeries))
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Inserts)
	assert.Equal(t, int64(1), stats.Conflicts)
}

func TestWriter_InsertErrorCounted(t *testing.T) {
	db := &fakeSender{err: errors.New("connection reset")}
	w := New(Config{BatchSize: 10, BufferSize: 10}, db, clockwork.NewFakeClock(), nil)

	w.Emit(event.MarketCreated(testSeries))
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.Inserts)
}

func TestWriter_DropsWhenBufferFull(t *testing.T) {
	db := &fakeSender{}
	w := New(Config{BatchSize: 10, BufferSize: 2}, db, clockwork.NewFakeClock(), nil)

	for range 4 {
		w.Emit(event.MarketCreated(testSeries))
	}

	assert.Equal(t, int64(2), w.Stats().Dropped)
	assert.Equal(t, 2, w.input.Len())
}

func TestWriter_FlushOnBatchSize(t *testing.T) {
	db := &fakeSender{}
	w := New(Config{BatchSize: 3, FlushInterval: time.Hour, BufferSize: 100}, db, clockwork.NewFakeClock(), nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(context.Background())

	for range 3 {
		w.Emit(event.MarketCreated(testSeries))
	}

	assert.Eventually(t, func() bool { return len(db.queued()) == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestWriter_FlushOnInterval(t *testing.T) {
	db := &fakeSender{}
	clock := clockwork.NewFakeClock()
	w := New(Config{BatchSize: 100, FlushInterval: time.Second, BufferSize: 100}, db, clock, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(context.Background())

	w.Emit(event.MarketCreated(testSeries))
	clock.BlockUntil(1)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return len(db.queued()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWriter_StopFlushesRemainder(t *testing.T) {
	db := &fakeSender{}
	w := New(Config{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 100}, db, clockwork.NewFakeClock(), nil)
	require.NoError(t, w.Start(context.Background()))

	w.Emit(event.MarketCreated(testSeries))
	w.Emit(event.MarketCreated(testSeries))
	require.NoError(t, w.Stop(context.Background()))

	assert.Len(t, db.queued(), 2)

	w.Emit(event.MarketCreated(testSeries))
	assert.Equal(t, int64(1), w.Stats().Dropped)
}
