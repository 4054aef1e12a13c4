package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/sync"
)

// errPassFailed ends a command whose result document already describes
// the failure.
var errPassFailed = errors.New("pass failed")

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a reconciliation pass",
		Long: `Run one reconciliation pass for a user, or for every user.

With --user the pass is a manual trigger: an invalid calendar selection is
cleared, and the result is printed as {"success":bool,"error":keyword}.
With --all every user is synced the way the scheduled job does it.`,
		RunE: runSync,
	}

	cmd.Flags().String("user", "", "user to sync")
	cmd.Flags().Bool("all", false, "sync every user")
	cmd.MarkFlagsMutuallyExclusive("user", "all")
	cmd.MarkFlagsOneRequired("user", "all")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	if err := requireGoogleClient(cc.Cfg); err != nil {
		return err
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.close()

	if all, _ := cmd.Flags().GetBool("all"); all {
		orch := sync.NewOrchestrator(&sync.OrchestratorConfig{
			Runner:    a.runner,
			Users:     a.store,
			BatchSize: cc.Cfg.Sync.UserBatchSize,
			Logger:    cc.Logger,
		})

		reports, err := orch.RunAll(ctx, sync.TriggerScheduled)
		if err != nil {
			return err
		}

		if cc.Flags.JSON {
			if err := printUserReportsJSON(os.Stdout, reports); err != nil {
				return err
			}
		} else {
			printUserReports(os.Stdout, reports)
		}

		return userReportsError(reports)
	}

	uid, _ := cmd.Flags().GetString("user")

	report, runErr := a.runner.Run(ctx, uid, sync.TriggerManual)
	res := sync.ResultOf(runErr)

	if runErr != nil && res.Error == sync.KeywordInternal {
		return runErr
	}

	if err := writeJSON(os.Stdout, res); err != nil {
		return err
	}

	if runErr != nil {
		cc.Logger.Debug("manual pass failed", slog.String("error", runErr.Error()))
		return errPassFailed
	}

	if report.Apply != nil {
		cc.Statusf("%d fetched, %d created, %d updated, %d evicted, %d failed\n",
			report.Fetched, report.Apply.Creates, report.Apply.Patches, report.Apply.Evicted, report.Apply.Failed)
	}

	return nil
}

// userReportsError summarizes failed passes as one error, or nil when every
// pass succeeded.
func userReportsError(reports []*sync.UserReport) error {
	failed := 0

	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}

	if failed == 0 {
		return nil
	}

	return fmt.Errorf("%d of %d users failed", failed, len(reports))
}

// userReportJSON is the JSON schema for one entry of `sync --all --json`.
type userReportJSON struct {
	UserID string           `json:"user_id"`
	Result sync.Result      `json:"result"`
	Report *sync.PassReport `json:"report,omitempty"`
}

func printUserReportsJSON(w io.Writer, reports []*sync.UserReport) error {
	out := make([]userReportJSON, 0, len(reports))

	for _, r := range reports {
		out = append(out, userReportJSON{
			UserID: r.UserID,
			Result: sync.ResultOf(r.Err),
			Report: r.Report,
		})
	}

	return writeJSON(w, out)
}

func printUserReports(w io.Writer, reports []*sync.UserReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No users.")
		return
	}

	rows := make([][]string, 0, len(reports))

	for _, r := range reports {
		res := sync.ResultOf(r.Err)

		result := "ok"
		if !res.Success {
			result = res.Error
		}

		fetched, created, updated, evicted := "-", "-", "-", "-"
		if r.Report != nil && r.Report.Apply != nil {
			fetched = strconv.Itoa(r.Report.Fetched)
			created = strconv.Itoa(r.Report.Apply.Creates)
			updated = strconv.Itoa(r.Report.Apply.Patches)
			evicted = strconv.Itoa(r.Report.Apply.Evicted)
		}

		rows = append(rows, []string{r.UserID, result, fetched, created, updated, evicted})
	}

	printTable(w, []string{"USER", "RESULT", "FETCHED", "CREATED", "UPDATED", "EVICTED"}, rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
