package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Default tracker limits.
const (
	DefaultMaxPending   = 4096
	DefaultPollInterval = time.Second
)

// ErrNoSinks is returned by Run when no sink is configured.
var ErrNoSinks = errors.New("no notification sinks")

// Report is one parameter change to be reported.
type Report struct {
	Path         string
	Type         model.DataType
	Value        any
	Notification model.Notification
	ChangedAt    time.Time
}

// String returns the value in its TR-069 string form.
func (r Report) String() string {
	return r.Type.Format(r.Value)
}

// Sink receives active notifications.
type Sink interface {
	// Publish delivers reports. It is called from Process, never with
	// the tree or tracker lock held.
	Publish(ctx context.Context, reports []Report) error
}

// Config holds tracker configuration.
type Config struct {
	// MinInterval is the coalescing window for active notifications.
	// Zero delivers them on the next Process call.
	MinInterval time.Duration

	// SuppressBounceBack drops changes whose value has returned to the
	// last reported one.
	SuppressBounceBack bool

	// IgnoreManagement drops changes made through the management
	// protocol.
	IgnoreManagement bool

	// MaxPending bounds the number of tracked parameters. Further
	// changes are dropped and logged.
	MaxPending int
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		SuppressBounceBack: true,
		IgnoreManagement:   true,
		MaxPending:         DefaultMaxPending,
	}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithConfig sets the configuration.
func WithConfig(c Config) Option {
	return func(t *Tracker) {
		t.config = c
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithSink adds a sink for active notifications.
func WithSink(s Sink) Option {
	return func(t *Tracker) {
		t.sinks = append(t.sinks, s)
	}
}

// entry is a tracked change. base is the value as last reported, used for
// bounce-back suppression.
type entry struct {
	report Report
	base   any
}

// Tracker records changes since the last report and dispatches active
// notifications. It implements model.ChangeListener.
type Tracker struct {
	mu sync.Mutex

	config Config
	logger *slog.Logger
	sinks  []Sink

	// pending holds every change since the last Drain.
	pending map[string]*entry

	// active holds active changes not yet delivered to the sinks.
	active      map[string]*entry
	windowStart time.Time

	wake chan struct{}
	now  func() time.Time
}

// NewTracker creates a tracker with the default configuration.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		config:  DefaultConfig(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending: make(map[string]*entry),
		active:  make(map[string]*entry),
		wake:    make(chan struct{}, 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.config.MaxPending <= 0 {
		t.config.MaxPending = DefaultMaxPending
	}
	return t
}

// AddSink adds a sink for active notifications.
func (t *Tracker) AddSink(s Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, s)
}

// OnChange records the value changes of a committed tree operation.
func (t *Tracker) OnChange(changes []model.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	woke := false
	for _, c := range changes {
		switch c.Kind {
		case model.ChangeObjectDeleted:
			t.dropPrefixLocked(c.Path)
			continue
		case model.ChangeValue:
		default:
			continue
		}
		if c.Notification == model.NotificationOff {
			continue
		}
		if t.config.IgnoreManagement && c.Origin == model.OriginManagement {
			continue
		}

		r := Report{Path: c.Path, Type: c.Type, Value: c.Value, Notification: c.Notification, ChangedAt: now}
		if !t.recordLocked(t.pending, r, c.OldValue) {
			t.logger.Warn("notification dropped, too many pending changes", "path", c.Path)
			continue
		}
		if c.Notification == model.NotificationActive {
			if len(t.active) == 0 {
				t.windowStart = now
			}
			t.recordLocked(t.active, r, c.OldValue)
			woke = true
		}
		t.logger.Log(context.Background(), model.LevelTrace, "change tracked",
			"path", c.Path, "notification", c.Notification)
	}

	if woke {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

func (t *Tracker) recordLocked(m map[string]*entry, r Report, old any) bool {
	if e, ok := m[r.Path]; ok {
		e.report = r
		return true
	}
	if len(m) >= t.config.MaxPending {
		return false
	}
	m[r.Path] = &entry{report: r, base: old}
	return true
}

// dropPrefixLocked forgets changes of parameters beneath a deleted object.
func (t *Tracker) dropPrefixLocked(prefix string) {
	for _, m := range []map[string]*entry{t.pending, t.active} {
		for path := range m {
			if strings.HasPrefix(path, prefix) {
				delete(m, path)
			}
		}
	}
}

// Pending returns the number of parameters changed since the last report.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Drain returns every parameter changed since the last Drain, ordered by
// path, and starts a new reporting period.
func (t *Tracker) Drain() []Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	reports := t.collectLocked(t.pending)
	t.pending = make(map[string]*entry)
	return reports
}

func (t *Tracker) collectLocked(m map[string]*entry) []Report {
	reports := make([]Report, 0, len(m))
	for _, e := range m {
		if t.config.SuppressBounceBack && e.report.Type.Format(e.report.Value) == e.report.Type.Format(e.base) {
			continue
		}
		reports = append(reports, e.report)
	}
	slices.SortFunc(reports, func(a, b Report) int {
		return strings.Compare(a.Path, b.Path)
	})
	return reports
}

// Process delivers pending active notifications to the sinks once the
// coalescing window has elapsed. Sink errors are joined; a failed delivery
// is not retried, the changes remain available to Drain.
func (t *Tracker) Process(ctx context.Context) error {
	t.mu.Lock()
	if len(t.active) == 0 || t.now().Sub(t.windowStart) < t.config.MinInterval {
		t.mu.Unlock()
		return nil
	}
	reports := t.collectLocked(t.active)
	t.active = make(map[string]*entry)
	sinks := slices.Clone(t.sinks)
	t.mu.Unlock()

	if len(reports) == 0 {
		return nil
	}

	var errs []error
	for _, s := range sinks {
		if err := s.Publish(ctx, reports); err != nil {
			t.logger.Warn("notification delivery failed", "error", err, "reports", len(reports))
			errs = append(errs, err)
		}
	}
	t.logger.Debug("active notifications delivered", "reports", len(reports), "sinks", len(sinks))
	return errors.Join(errs...)
}

// Run calls Process whenever an active change arrives and at every poll
// interval, until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	t.mu.Lock()
	n := len(t.sinks)
	interval := t.config.MinInterval
	t.mu.Unlock()
	if n == 0 {
		return ErrNoSinks
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
		case <-ticker.C:
		}
		if err := t.Process(ctx); err != nil {
			t.logger.Debug("process", "error", err)
		}
	}
}
