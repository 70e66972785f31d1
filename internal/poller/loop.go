// Package poller runs the fetch → validate → translate → notify cycle on a
// fixed period and owns the from_date cursor.
package poller

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"hwbot/internal/homework"
	"hwbot/internal/observability/metrics"
	logx "hwbot/pkg/logx"
)

const (
	DefaultPeriod = 600 * time.Second

	// FailureTemplate is the chat message for a failed cycle.
	FailureTemplate = "Сбой в работе программы: %s."
)

// Fetcher returns the decoded API body for statuses changed since fromDate.
type Fetcher interface {
	Statuses(ctx context.Context, fromDate int64) (any, error)
}

// Notifier delivers a message and reports whether it reached the chat.
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// Config is fixed for the lifetime of a Loop, except Period which can be
// changed with SetPeriod.
type Config struct {
	Period   time.Duration
	Verdicts map[homework.Status]string
}

type Option func(*Loop)

// WithStartCursor overrides the initial cursor (wall-clock now).
func WithStartCursor(unix int64) Option {
	return func(l *Loop) { l.cursor.Store(unix) }
}

// WithAfterCycle registers fn to run after every finished cycle, success or not.
func WithAfterCycle(fn func()) Option {
	return func(l *Loop) { l.afterCycle = fn }
}

type Loop struct {
	cfg        Config
	fetch      Fetcher
	notify     Notifier
	validator  *homework.Validator
	translator *homework.Translator
	log        logx.Logger
	metrics    *metrics.Metrics
	afterCycle func()

	period    atomic.Int64
	cursor    atomic.Int64
	lastCycle atomic.Int64
}

func New(cfg Config, f Fetcher, n Notifier, log logx.Logger, m *metrics.Metrics, opts ...Option) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	cfg.Verdicts = maps.Clone(cfg.Verdicts)

	l := &Loop{
		cfg:        cfg,
		fetch:      f,
		notify:     n,
		validator:  homework.NewValidator(log.With(logx.String("comp", "validator"))),
		translator: homework.NewTranslator(cfg.Verdicts, log.With(logx.String("comp", "translator"))),
		log:        log,
		metrics:    m,
	}
	now := time.Now()
	l.period.Store(int64(cfg.Period))
	l.cursor.Store(now.Unix())
	l.lastCycle.Store(now.UnixNano())
	for _, o := range opts {
		o(l)
	}
	m.SetCursor(l.cursor.Load())
	return l
}

// Cursor is the from_date used by the next fetch.
func (l *Loop) Cursor() int64 { return l.cursor.Load() }

func (l *Loop) Period() time.Duration { return time.Duration(l.period.Load()) }

// SetPeriod takes effect from the next sleep. Non-positive values are ignored.
func (l *Loop) SetPeriod(d time.Duration) {
	if d > 0 {
		l.period.Store(int64(d))
	}
}

// Healthy reports whether a cycle finished recently enough, allowing for one
// missed sleep plus a slow request.
func (l *Loop) Healthy() bool {
	last := time.Unix(0, l.lastCycle.Load())
	return time.Since(last) < 2*l.Period()+time.Minute
}

// Run repeats RunCycle and sleeps Period between cycles until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("poll loop started", logx.Int64("from_date", l.Cursor()), logx.Duration("period", l.Period()))
	for {
		_ = l.RunCycle(ctx)
		if ctx.Err() != nil {
			l.log.Info("poll loop stopped", logx.Int64("from_date", l.Cursor()))
			return ctx.Err()
		}

		t := time.NewTimer(l.Period())
		select {
		case <-ctx.Done():
			t.Stop()
			l.log.Info("poll loop stopped", logx.Int64("from_date", l.Cursor()))
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunCycle performs one poll. A failure is logged, counted and reported to the
// chat before being returned; the caller only needs the error for inspection.
// A failure caused by ctx cancellation is not reported.
func (l *Loop) RunCycle(ctx context.Context) error {
	log := l.log.With(
		logx.String("cycle", uuid.NewString()),
		logx.Int64("from_date", l.Cursor()),
	)
	defer func() {
		l.lastCycle.Store(time.Now().UnixNano())
		if l.afterCycle != nil {
			l.afterCycle()
		}
	}()

	err := l.cycle(ctx, log)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		log.Debug("cycle interrupted", logx.Err(err))
		return err
	}
	l.report(ctx, log, err)
	return err
}

func (l *Loop) cycle(ctx context.Context, log logx.Logger) error {
	start := time.Now()
	body, err := l.fetch.Statuses(ctx, l.Cursor())
	l.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return err
	}

	hws, err := l.validator.CheckResponse(body)
	if err != nil {
		return err
	}

	if len(hws) > 0 {
		msg, err := l.translator.ParseStatus(&hws[0])
		if err != nil {
			return err
		}
		log.Info("homework status changed",
			logx.String(homework.FieldHomeworkName, hws[0].Name),
			logx.String(homework.FieldStatus, string(hws[0].Status)),
		)
		l.notify.Send(ctx, msg)
		l.metrics.ObserveCycle(metrics.CycleNotified)
		return nil
	}

	date, err := l.validator.CurrentDate(body)
	if err != nil {
		return err
	}
	l.cursor.Store(date)
	l.metrics.SetCursor(date)
	l.metrics.ObserveCycle(metrics.CycleNoUpdates)
	log.Info("no new statuses", logx.Int64(homework.FieldCurrentDate, date))
	return nil
}

func (l *Loop) report(ctx context.Context, log logx.Logger, err error) {
	kind := homework.KindOf(err)
	switch kind {
	case homework.KindTransport, homework.KindParse, homework.KindShape, homework.KindDomain, homework.KindDelivery:
		log.Error("cycle failed", logx.String("kind", kind.String()), logx.Err(err))
	default:
		log.Error("unhandled failure", logx.String("kind", "unhandled"), logx.Err(err))
	}
	l.metrics.ObserveFailure(kind.String())
	l.notify.Send(ctx, fmt.Sprintf(FailureTemplate, err))
}
