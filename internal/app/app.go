package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/observability/metrics"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	rtsup "hwbot/internal/runtime/supervisor"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
	"hwbot/pkg/systemd"
)

// Options are the process-level inputs of NewApp.
type Options struct {
	ConfigPath string
	EnvFile    string

	// Lookup reads credentials; os.LookupEnv when nil.
	Lookup func(string) (string, bool)
	// TelegramAPIURL overrides the Bot API base URL.
	TelegramAPIURL string
}

type App struct {
	cfgm  *config.ConfigManager
	creds config.Credentials
	sup   *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	client  *practicum.Client
	notif   *notifier.Service
	loop    *poller.Loop
	metrics *metrics.Metrics
	ops     *metrics.Server
	sd      *systemd.Notifier
}

// NewApp loads the environment, config and credentials and builds every
// component. Failures are logged at critical level before being returned; the
// caller only has to exit.
func NewApp(opts Options) (*App, error) {
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "app"))

	envLoaded, err := config.LoadEnvFile(opts.EnvFile)
	if err != nil {
		bootLog.Critical("env file unreadable", logx.String("path", opts.EnvFile), logx.Err(err))
		return nil, err
	}

	cfgm := config.NewConfigManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		bootLog.Critical("config unreadable", logx.String("path", opts.ConfigPath), logx.Err(err))
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	fail := func(msg string, err error, fields ...logx.Field) (*App, error) {
		log.Critical(msg, append(fields, logx.Err(err))...)
		_ = logSvc.Close()
		return nil, err
	}

	creds, err := config.LoadCredentials(opts.Lookup)
	if err != nil {
		return fail("required environment variables are missing, the bot cannot start", err)
	}

	m := metrics.New()
	sd := systemd.New()

	ad, err := telegram.New(telegram.Config{
		Token:   creds.TelegramToken,
		APIURL:  opts.TelegramAPIURL,
		Timeout: cfg.SendTimeout(),
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return fail("telegram client init failed", err)
	}

	client := practicum.New(mapPracticumConfig(cfg, creds), log.With(logx.String("comp", "practicum")))
	notif := notifier.New(mapNotifierConfig(cfg, creds), ad, log.With(logx.String("comp", "notifier")), m)

	loop := poller.New(poller.Config{Period: cfg.PollPeriod()}, client, notif, log.With(logx.String("comp", "poller")), m,
		poller.WithAfterCycle(sd.Watchdog),
	)

	ops := metrics.NewServer(mapMetricsConfig(cfg), m, loop.Healthy, log.With(logx.String("comp", "ops")))

	log.Info("bot configured",
		logx.String("config", cfgm.Path()),
		logx.Bool("env_file_loaded", envLoaded),
		logx.String("endpoint", client.Endpoint()),
		logx.Duration("period", loop.Period()),
		logx.String("chat", creds.Chat()),
		logx.Bool("metrics", cfg.Metrics.Enabled),
		logx.Duration("systemd_watchdog", sd.WatchdogInterval()),
	)

	return &App{
		cfgm:    cfgm,
		creds:   creds,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		client:  client,
		notif:   notif,
		loop:    loop,
		metrics: m,
		ops:     ops,
		sd:      sd,
	}, nil
}

// Loop exposes the poll loop (cursor, period) for diagnostics.
func (a *App) Loop() *poller.Loop { return a.loop }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateMetricsConfig(cfg)
	})

	// The ops server is optional; a bind failure is logged, not fatal.
	if err := a.ops.Start(a.sup.Context()); err != nil {
		a.log.Warn("ops server not started", logx.Err(err))
	}

	a.sup.GoRestart("poll.loop", a.loop.Run,
		rtsup.WithRestartBackoff(time.Second, time.Minute),
	)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if sent, err := a.sd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}
	a.log.Info("bot started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLoggingConfig(newCfg))
	a.loop.SetPeriod(newCfg.PollPeriod())
	a.notif.Apply(mapNotifierConfig(newCfg, a.creds))
	if err := a.ops.Reconfigure(ctx, mapMetricsConfig(newCfg)); err != nil {
		a.log.Warn("ops server reconfigure failed", logx.Err(err))
	}

	for _, s := range sections {
		if s == "api" {
			a.log.Warn("api config changed; restart required for changes to take effect")
			break
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)), logx.Int64("from_date", a.loop.Cursor()))
	a.sd.Stopping()

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	var errs []error
	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
			// respect the caller's deadline; never extend it
			max = time.Until(dl)
		}
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			// Contract: fn MUST honor stepCtx and return promptly.
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("ops", time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	// Waits for the poll loop (an in-flight request is canceled) and the config goroutines.
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}
