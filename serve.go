package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/gradecal/internal/config"
	"github.com/tonimelisma/gradecal/internal/server"
	"github.com/tonimelisma/gradecal/internal/store"
	"github.com/tonimelisma/gradecal/internal/sync"
)

// configDebounce coalesces the burst of events an editor produces when it
// saves the config file.
const configDebounce = 500 * time.Millisecond

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled sync job and the HTTP server",
		Long: `Run every user's pass on the configured cron schedule and serve the
manual trigger, the report stream, and the ICS feeds over HTTP.

The config file is reloaded when it changes or on SIGHUP (see 'gradecal
reload'). Changes to state_dir and server.listen need a restart.`,
		RunE: runServe,
	}

	cmd.Flags().Bool("run-now", false, "run the scheduled job once at startup")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	if err := requireGoogleClient(cc.Cfg); err != nil {
		return err
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	lock, err := acquireServeLock(cc.Cfg.PIDPath())
	if err != nil {
		return err
	}
	defer lock.release()

	st, err := openStore(ctx, cc)
	if err != nil {
		return err
	}
	defer st.Close()

	// The server failing to bind ends serve the same way a signal does.
	g, gctx := errgroup.WithContext(ctx)
	d := newDaemon(gctx, cc, st, cliOverrides(cmd, cc.Flags))

	if _, err := d.sched.setSchedule(cc.Cfg.Sync.Schedule); err != nil {
		return err
	}

	srv := server.New(server.Config{
		Runner:        d,
		Store:         st,
		Hub:           d.hub,
		SourceBaseURL: cc.Cfg.Gradescope.BaseURL,
		Logger:        cc.Logger,
	})

	g.Go(func() error {
		return srv.ListenAndServe(gctx, cc.Cfg.Server.Listen, nil)
	})

	d.sched.start()

	cc.Logger.Info("scheduler started",
		slog.String("schedule", cc.Cfg.Sync.Schedule),
		slog.Time("next_run", d.sched.next()),
	)

	if runNow, _ := cmd.Flags().GetBool("run-now"); runNow {
		d.sched.runNow()
	}

	d.watch(gctx)
	d.sched.stop()

	return g.Wait()
}

// daemon is the state `serve` shares between the scheduler, the HTTP
// server, and config reloads. Passes are built from the live config, so a
// reload applies to the next pass without a restart.
type daemon struct {
	ctx    context.Context // canceled on shutdown; scheduled passes run under it
	cc     *CLIContext
	holder *config.Holder
	store  *store.Store
	hub    *server.Hub
	sched  *scheduler
	cli    config.CLIOverrides
	logger *slog.Logger
}

func newDaemon(ctx context.Context, cc *CLIContext, st *store.Store, cli config.CLIOverrides) *daemon {
	d := &daemon{
		ctx:    ctx,
		cc:     cc,
		holder: config.NewHolder(cc.Cfg, cc.CfgPath),
		store:  st,
		hub:    server.NewHub(cc.Logger),
		cli:    cli,
		logger: cc.Logger,
	}

	d.sched = newScheduler(d.runScheduled, cc.Logger)

	return d
}

// runner builds a pass runner from the current config.
func (d *daemon) runner() *sync.Runner {
	cfg := d.holder.Config()

	return newRunner(cfg, d.store, newConnector(cfg, d.store, d.cc), d.cc)
}

// Run implements server.PassRunner for manual triggers.
func (d *daemon) Run(ctx context.Context, userID string, trigger sync.Trigger) (*sync.PassReport, error) {
	return d.runner().Run(ctx, userID, trigger)
}

// runScheduled is the cron job: one scheduled pass for every user.
func (d *daemon) runScheduled() {
	start := time.Now()

	orch := sync.NewOrchestrator(&sync.OrchestratorConfig{
		Runner:    d.runner(),
		Users:     d.store,
		BatchSize: d.holder.Config().Sync.UserBatchSize,
		Logger:    d.logger,
		OnReport:  d.hub.PublishUserReport(sync.TriggerScheduled),
	})

	reports, err := orch.RunAll(d.ctx, sync.TriggerScheduled)
	if err != nil {
		d.logger.Error("scheduled job failed", slog.String("error", err.Error()))
		return
	}

	failed := 0

	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}

	d.logger.Info("scheduled job complete",
		slog.Int("users", len(reports)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
		slog.Time("next_run", d.sched.next()),
	)
}

// watch blocks until ctx is done, reloading the config on SIGHUP and when
// the config file changes.
func (d *daemon) watch(ctx context.Context) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)

	defer signal.Stop(sighup)

	changed := d.watchConfigFile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sighup:
			d.logger.Info("SIGHUP received, reloading config")
			d.reload()
		case <-changed:
			d.logger.Info("config file changed, reloading")
			d.reload()
		}
	}
}

// reload re-resolves the config. A config that fails to load or validate
// is ignored and the current one kept.
func (d *daemon) reload() {
	env, err := config.ReadEnvOverrides()
	if err != nil {
		d.logger.Warn("config reload failed, keeping current config", slog.String("error", err.Error()))
		return
	}

	next, err := config.Resolve(d.holder.Path(), env, d.cli)
	if err != nil {
		d.logger.Warn("config reload failed, keeping current config", slog.String("error", err.Error()))
		return
	}

	cur := d.holder.Config()

	if next.StatePath() != cur.StatePath() {
		d.logger.Warn("state_dir change takes effect on restart", slog.String("state_dir", next.StatePath()))
		next.StateDir = cur.StateDir
	}

	if next.Server.Listen != cur.Server.Listen {
		d.logger.Warn("server.listen change takes effect on restart", slog.String("listen", next.Server.Listen))
	}

	d.holder.Update(next)

	changed, err := d.sched.setSchedule(next.Sync.Schedule)
	if err != nil {
		d.logger.Error("schedule not updated", slog.String("error", err.Error()))
	}

	if changed {
		d.logger.Info("schedule updated",
			slog.String("schedule", next.Sync.Schedule),
			slog.Time("next_run", d.sched.next()),
		)
	}

	d.logger.Info("config reloaded")
}

// watchConfigFile signals on the returned channel when the config file is
// written, created, or replaced. The directory is watched rather than the
// file so editors that save by rename are seen. A watcher that cannot be
// set up leaves SIGHUP as the only reload path.
func (d *daemon) watchConfigFile(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	path := filepath.Clean(d.holder.Path())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Warn("config watcher unavailable", slog.String("error", err.Error()))
		return out
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		d.logger.Warn("config watcher unavailable",
			slog.String("dir", filepath.Dir(path)),
			slog.String("error", err.Error()),
		)

		return out
	}

	go func() {
		defer watcher.Close()

		var debounce <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(ev.Name) != path || !isConfigWrite(ev) {
					continue
				}

				debounce = time.After(configDebounce)

			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}

				d.logger.Warn("config watcher error", slog.String("error", werr.Error()))

			case <-debounce:
				debounce = nil

				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out
}

func isConfigWrite(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Tell a running 'gradecal serve' to reload its config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := signalServe(cc.Cfg.PIDPath(), syscall.SIGHUP); err != nil {
				return err
			}

			cc.Statusf("Reload signal sent.\n")

			return nil
		},
	}
}
