package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/binxgraph/ingest"
	"github.com/zero-day-ai/binxgraph/queue"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import analysis exports",
	}

	var noValidate, validate bool
	cmd.PersistentFlags().BoolVar(&validate, "validate", false, "Check document shape before importing")
	cmd.PersistentFlags().BoolVar(&noValidate, "no-validate", false, "Skip document shape checks")
	applyValidation := func() {
		if validate {
			a.cfg.Import.Validate = true
		}
		if noValidate {
			a.cfg.Import.Validate = false
		}
	}

	jsonCmd := &cobra.Command{
		Use:   "json FILE",
		Short: "Import one JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyValidation()
			return a.importFile(cmd.Context(), args[0])
		},
	}

	var pattern string
	dirCmd := &cobra.Command{
		Use:   "dir DIR",
		Short: "Import every matching export in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyValidation()
			return a.importDir(cmd.Context(), args[0], a.pattern(pattern))
		},
	}
	dirCmd.Flags().StringVarP(&pattern, "pattern", "p", "", "File name pattern (default import.pattern)")

	var settle time.Duration
	watchCmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Import exports as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyValidation()
			return a.watch(cmd.Context(), args[0], a.pattern(pattern), settle)
		},
	}
	watchCmd.Flags().StringVarP(&pattern, "pattern", "p", "", "File name pattern (default import.pattern)")
	watchCmd.Flags().DurationVar(&settle, "settle", ingest.DefaultSettle, "Quiet period before a written file is imported")

	var wait bool
	var timeout time.Duration
	enqueueCmd := &cobra.Command{
		Use:   "enqueue DIR",
		Short: "Queue every matching export for import workers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.enqueue(cmd.Context(), args[0], a.pattern(pattern), wait, timeout)
		},
	}
	enqueueCmd.Flags().StringVarP(&pattern, "pattern", "p", "", "File name pattern (default import.pattern)")
	enqueueCmd.Flags().BoolVar(&wait, "wait", false, "Wait for workers to report every result")
	enqueueCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Maximum wait with --wait")

	cmd.AddCommand(jsonCmd, dirCmd, watchCmd, enqueueCmd)
	return cmd
}

func (a *app) pattern(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Import.Pattern
}

func (a *app) importFile(ctx context.Context, path string) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer a.closeClient(ctx, client)

	// one file is one batch; a signal does not interrupt it
	res, err := client.ImportFile(context.WithoutCancel(ctx), path)
	if err != nil {
		return err
	}
	if err := a.emit(res, func(w io.Writer) { printResult(w, res) }); err != nil {
		return err
	}
	if !res.Success {
		return errImportFailed
	}
	return nil
}

func (a *app) importDir(ctx context.Context, dir, pattern string) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer a.closeClient(ctx, client)

	res, err := client.ImportDirectory(ctx, dir, pattern)
	if res.Files == 0 && err == nil {
		fmt.Fprintf(a.stdout, "No files matching %q in %s\n", pattern, dir)
		return nil
	}
	// a cancelled run still reports what it imported
	if outErr := a.emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d of %d files from %s\n", res.Succeeded, res.Files, dir)
		printStatistics(w, res.Statistics, res.TotalNodes)
		printErrors(w, res.TopErrors(ingest.DefaultTopErrors), len(res.Errors))
	}); outErr != nil {
		return outErr
	}
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return errImportFailed
	}
	return nil
}

func (a *app) watch(ctx context.Context, dir, pattern string, settle time.Duration) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer a.closeClient(ctx, client)

	w := &ingest.Watcher{
		Importer: client.Importer(),
		Dir:      dir,
		Pattern:  pattern,
		Settle:   settle,
		Logger:   a.logger,
		OnResult: func(path string, res ingest.Result, err error) {
			if err != nil {
				fmt.Fprintf(a.stdout, "%s: %v\n", path, err)
				return
			}
			if a.jsonOutput() {
				_ = writeJSON(a.stdout, res)
				return
			}
			fmt.Fprintf(a.stdout, "%s: success=%t nodes=%d calls=%d errors=%d\n",
				path, res.Success, res.TotalNodes, res.Statistics.CallsRelationships, len(res.Errors))
		},
	}
	fmt.Fprintf(a.stderr, "Watching %s for %s (Ctrl+C to stop)\n", dir, pattern)
	err = w.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *app) enqueue(ctx context.Context, dir, pattern string, wait bool, timeout time.Duration) error {
	files, err := ingest.ListFiles(dir, pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(a.stdout, "No files matching %q in %s\n", pattern, dir)
		return nil
	}

	qc, err := a.newQueue()
	if err != nil {
		return err
	}
	defer func() {
		if err := qc.Close(); err != nil {
			a.logger.Warn("failed to close queue client", "error", err)
		}
	}()

	if workers, err := qc.WorkerCount(ctx); err == nil && workers == 0 {
		a.logger.Warn("no import workers are running", "queue", a.cfg.Redis.Queue)
	}

	jobID := uuid.NewString()
	if !wait {
		if err := queue.EnqueueJob(ctx, qc, a.cfg.Redis.Queue, jobID, files); err != nil {
			return err
		}
		return a.emit(map[string]any{"job_id": jobID, "files": len(files)}, func(w io.Writer) {
			fmt.Fprintf(w, "Queued %d files as job %s\n", len(files), jobID)
		})
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	results, err := qc.Subscribe(waitCtx, queue.ResultChannel(jobID))
	if err != nil {
		return err
	}
	if err := queue.EnqueueJob(ctx, qc, a.cfg.Redis.Queue, jobID, files); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "Queued %d files as job %s, waiting for results\n", len(files), jobID)

	sum, err := queue.Collect(waitCtx, results, jobID, len(files))
	if outErr := a.emit(sum, func(w io.Writer) {
		fmt.Fprintf(w, "Job %s: %d of %d files imported (%d received)\n", jobID, sum.Succeeded, sum.Total, sum.Received)
		printStatistics(w, sum.Statistics, sum.TotalNodes)
		printErrors(w, topN(sum.Errors, ingest.DefaultTopErrors), len(sum.Errors))
	}); outErr != nil {
		return outErr
	}
	if err != nil {
		return fmt.Errorf("waiting for job %s: %w", jobID, err)
	}
	if sum.Failed > 0 {
		return errImportFailed
	}
	return nil
}

func topN(errs []string, n int) []string {
	if len(errs) <= n {
		return errs
	}
	return errs[:n]
}
