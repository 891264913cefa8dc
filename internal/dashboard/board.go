// Package dashboard mounts a set of prediction fields, each filled by one
// independent call, and renders them while they settle.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/client"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
)

// ErrUnmounted is returned by Wait when the board was unmounted before every field settled.
var ErrUnmounted = errors.New("board unmounted")

// State of a single field.
type State string

const (
	StatePending  State = "pending"
	StateResolved State = "resolved"
	StateFailed   State = "failed"
)

// Source fills one field. Fetch is called exactly once per mount; its value is
// either a string or a float64.
type Source struct {
	Key   string
	Label string
	Fetch func(ctx context.Context) (any, error)
}

// FieldView is a point-in-time copy of one field.
type FieldView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	State State  `json:"state"`
	Value any    `json:"value"`
	Error string `json:"error,omitempty"`
}

// Options tunes a mount.
type Options struct {
	Logger *zap.Logger
	// CallTimeout bounds each Fetch. Zero leaves a silent endpoint pending forever.
	CallTimeout time.Duration
}

// Board is one mounted set of fields. All methods are safe for concurrent use.
type Board struct {
	id        string
	mountedAt time.Time
	logger    *zap.Logger
	cancel    context.CancelFunc

	mu        sync.Mutex
	fields    []FieldView
	pending   int
	unmounted bool
	settled   chan struct{}
	stopped   chan struct{}
}

// Mount starts one goroutine per source and returns immediately with every field pending.
// Calls are independent: their order of completion is not defined and a failure
// touches only its own field.
func Mount(ctx context.Context, sources []Source, opts Options) *Board {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	b := &Board{
		id:        ulid.Make().String(),
		mountedAt: time.Now(),
		cancel:    cancel,
		fields:    make([]FieldView, len(sources)),
		pending:   len(sources),
		settled:   make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	b.logger = logger.With(zap.String("mount_id", b.id))
	for i, src := range sources {
		b.fields[i] = FieldView{Key: src.Key, Label: src.Label, State: StatePending}
	}
	if b.pending == 0 {
		close(b.settled)
	}

	observability.DashboardMountsTotal.Inc()
	b.logger.Debug("board mounted", zap.Int("fields", len(sources)))

	for i, src := range sources {
		go b.fetch(ctx, i, src, opts.CallTimeout)
	}
	return b
}

func (b *Board) fetch(ctx context.Context, i int, src Source, timeout time.Duration) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := src.Fetch(ctx)
	b.settle(i, v, err)
}

func (b *Board) settle(i int, v any, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.fields[i].Key
	if b.unmounted {
		observability.DashboardFieldsTotal.WithLabelValues(key, "discarded").Inc()
		b.logger.Debug("late result discarded", zap.String("field", key))
		return
	}

	f := &b.fields[i]
	if err != nil {
		f.State = StateFailed
		f.Error = err.Error()
		b.logger.Warn("prediction call failed",
			zap.String("field", key),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
		traffic.Record(traffic.Failure)
	} else {
		f.State = StateResolved
		f.Value = v
		traffic.Record(traffic.Success)
	}
	observability.DashboardFieldsTotal.WithLabelValues(key, string(f.State)).Inc()
	observability.DashboardFieldSettleSeconds.WithLabelValues(key).Observe(time.Since(b.mountedAt).Seconds())

	b.pending--
	if b.pending == 0 {
		close(b.settled)
	}
}

// ID returns the mount identifier.
func (b *Board) ID() string { return b.id }

// MountedAt returns when the board was mounted.
func (b *Board) MountedAt() time.Time { return b.mountedAt }

// Snapshot returns a consistent copy of every field in source order.
func (b *Board) Snapshot() []FieldView {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FieldView, len(b.fields))
	copy(out, b.fields)
	return out
}

// Wait blocks until every field settled, the board is unmounted or ctx is done.
func (b *Board) Wait(ctx context.Context) error {
	select {
	case <-b.settled:
		return nil
	default:
	}
	select {
	case <-b.settled:
		return nil
	case <-b.stopped:
		return ErrUnmounted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount cancels outstanding calls. Results arriving afterwards are discarded and
// the snapshot no longer changes. Safe to call more than once.
func (b *Board) Unmount() {
	b.mu.Lock()
	if b.unmounted {
		b.mu.Unlock()
		return
	}
	b.unmounted = true
	close(b.stopped)
	b.mu.Unlock()

	b.cancel()
	b.logger.Debug("board unmounted")
}
