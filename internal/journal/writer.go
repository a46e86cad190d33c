package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/metrics"
)

const insertEvent = `
	INSERT INTO bridge_events (event_id, event_type, series_id, market_id, payload, emitted_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (event_id) DO NOTHING
`

// Config holds journal writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// BatchSender is satisfied by *pgxpool.Pool and *pgx.Conn.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Stats tracks writer activity.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}

type row struct {
	EventID   string
	EventType string
	SeriesID  string
	MarketID  string
	Payload   []byte
	EmittedAt time.Time
}

// Writer batches emitted events into the bridge_events table.
type Writer struct {
	cfg    Config
	db     BatchSender
	clock  clockwork.Clock
	logger *slog.Logger

	input *Buffer[row]

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	flushMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Writer. Call Start before events are expected to reach the database.
func New(cfg Config, db BatchSender, clock clockwork.Clock, logger *slog.Logger) *Writer {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		clock:  clock,
		logger: logger,
		input:  NewBuffer[row](min(cfg.BatchSize, cfg.BufferSize), cfg.BufferSize),
	}
}

// Emit enqueues ev for persistence. It never blocks.
func (w *Writer) Emit(ev event.Event) {
	r, err := w.transform(ev)
	if err != nil {
		w.logger.Error("journal encode failed", "type", ev.Type, "error", err)
		w.countDropped()
		return
	}
	if !w.input.Push(r) {
		w.countDropped()
	}
}

// Start begins the background flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
		"buffer_size", w.cfg.BufferSize,
	)
	return nil
}

// Stop halts the flush loop and writes whatever is still buffered.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	w.input.Close()
	w.flush(ctx)

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.Chan():
			w.flush(w.ctx)
		case <-w.input.Ready():
			if w.input.Len() >= w.cfg.BatchSize {
				w.flush(w.ctx)
			}
		}
	}
}

func (w *Writer) transform(ev event.Event) (row, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return row{}, err
	}
	seriesID, marketID := ev.Keys()
	return row{
		EventID:   uuid.NewString(),
		EventType: string(ev.Type),
		SeriesID:  seriesID,
		MarketID:  marketID,
		Payload:   payload,
		EmittedAt: w.clock.Now().UTC(),
	}, nil
}

// flush drains the buffer in BatchSize chunks.
func (w *Writer) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	for {
		rows := w.input.Drain(w.cfg.BatchSize)
		if len(rows) == 0 {
			return
		}

		start := w.clock.Now()
		conflicts, err := w.batchInsert(ctx, rows)
		if err != nil {
			w.logger.Error("journal batch insert failed", "error", err, "count", len(rows))
			metrics.JournalErrors.Inc()
			w.statsMu.Lock()
			w.stats.Errors++
			w.statsMu.Unlock()
			return
		}

		inserted := len(rows) - conflicts
		metrics.JournalInserts.Add(float64(inserted))
		w.statsMu.Lock()
		w.stats.Inserts += int64(inserted)
		w.stats.Conflicts += int64(conflicts)
		w.stats.Flushes++
		w.statsMu.Unlock()

		w.logger.Debug("flushed journal",
			"count", len(rows),
			"conflicts", conflicts,
			"duration", w.clock.Since(start),
		)
	}
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertEvent, r.EventID, r.EventType, nullable(r.SeriesID), nullable(r.MarketID), r.Payload, r.EmittedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

func (w *Writer) countDropped() {
	metrics.JournalDropped.Inc()
	w.statsMu.Lock()
	w.stats.Dropped++
	w.statsMu.Unlock()
}

// nullable maps an empty key to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
