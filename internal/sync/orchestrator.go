package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultUserBatchSize bounds concurrent passes when OrchestratorConfig
// leaves BatchSize zero.
const DefaultUserBatchSize = 16

// passRunner is the interface the Orchestrator uses to run passes.
// Implemented by *Runner; mocks are used in tests.
type passRunner interface {
	Run(ctx context.Context, userID string, trigger Trigger) (*PassReport, error)
}

// userLister enumerates the users a bulk run covers.
type userLister interface {
	Users(ctx context.Context) ([]string, error)
}

// OrchestratorConfig holds the inputs for creating an Orchestrator.
type OrchestratorConfig struct {
	Runner    *Runner
	Users     userLister
	BatchSize int // concurrent passes; 0 = DefaultUserBatchSize
	Logger    *slog.Logger

	// OnReport, if set, receives each user's report as soon as its pass
	// ends. It is called from worker goroutines concurrently.
	OnReport func(*UserReport)
}

// Orchestrator runs the same pass for every user, a bounded number at a
// time. Each pass is isolated: its error or panic is captured in its
// UserReport and never cancels its siblings.
type Orchestrator struct {
	runner    passRunner // injectable for tests
	users     userLister
	batchSize int
	logger    *slog.Logger
	onReport  func(*UserReport)
}

// NewOrchestrator creates an Orchestrator. Tests override runner after
// construction.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultUserBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		users:     cfg.Users,
		batchSize: batch,
		logger:    logger,
		onReport:  cfg.OnReport,
	}

	if cfg.Runner != nil {
		o.runner = cfg.Runner
	}

	return o
}

// RunAll executes one pass per user. It fails only when the user list
// cannot be read; per-user errors are in the reports, which are in the
// order the users were listed.
func (o *Orchestrator) RunAll(ctx context.Context, trigger Trigger) ([]*UserReport, error) {
	users, err := o.users.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: listing users: %w", err)
	}

	return o.RunUsers(ctx, users, trigger), nil
}

// RunUsers executes one pass per listed user.
func (o *Orchestrator) RunUsers(ctx context.Context, users []string, trigger Trigger) []*UserReport {
	if len(users) == 0 {
		return nil
	}

	start := time.Now()

	o.logger.Info("bulk run starting",
		slog.Int("users", len(users)),
		slog.Int("batch_size", o.batchSize),
		slog.String("trigger", trigger.String()),
	)

	reports := make([]*UserReport, len(users))

	var g errgroup.Group
	g.SetLimit(o.batchSize)

	for i, uid := range users {
		g.Go(func() error {
			ur := &userRunner{userID: uid}
			reports[i] = ur.run(ctx, func(ctx context.Context) (*PassReport, error) {
				return o.runner.Run(ctx, uid, trigger)
			})

			if reports[i].Err != nil {
				o.logger.Warn("pass failed",
					slog.String("user_id", uid),
					slog.String("keyword", FailureKeyword(reports[i].Err)),
					slog.String("error", reports[i].Err.Error()),
				)
			}

			if o.onReport != nil {
				o.onReport(reports[i])
			}

			return nil
		})
	}

	// Workers keep their outcome in reports and never fail the group.
	g.Wait()

	failed := 0

	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}

	o.logger.Info("bulk run complete",
		slog.Int("users", len(users)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)

	return reports
}
