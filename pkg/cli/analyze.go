package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// errBatchFailed marks a batch whose outcome carries an error; the JSON has already been written.
var errBatchFailed = errors.New("batch failed")

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		batchPath  string
		outPath    string
		reportOnly bool
		quiet      bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one batch file and print the remediation JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchPath == "" {
				return fmt.Errorf("--batch is required")
			}
			batch, err := readBatch(batchPath)
			if err != nil {
				return err
			}

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reporter := newConsoleReporter(cmd.ErrOrStderr(), noColor)

			if reportOnly {
				optimizer, err := newOptimizer(cfg, nil, logger)
				if err != nil {
					return err
				}
				report, err := optimizer.Analyze(ctx, batch)
				if err != nil {
					return err
				}
				reporter.out = cmd.OutOrStdout()
				reporter.Report(report)
				return nil
			}

			oracle, err := newOracle(cfg, logger)
			if err != nil {
				return err
			}
			optimizer, err := newOptimizer(cfg, oracle, logger)
			if err != nil {
				return err
			}

			outcome := optimizer.Run(ctx, batch)
			if !quiet {
				reporter.Report(outcome.Report)
				reporter.Transitions(outcome.Transitions)
				reporter.Outcome(outcome)
			}

			if err := writeOutcome(cmd.OutOrStdout(), outPath, outcome); err != nil {
				return err
			}
			if outcome.Failed() {
				return fmt.Errorf("%w: %s", errBatchFailed, outcome.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&batchPath, "batch", "", "path to batch JSON ({url, ddl, queries}), - for stdin")
	cmd.Flags().StringVar(&outPath, "out", "", "write the outcome JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&reportOnly, "report-only", false, "print the analysis report without calling the oracle")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the report on stderr")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func readBatch(path string) (models.Batch, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.Batch{}, fmt.Errorf("read batch: %w", err)
	}

	var batch models.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return models.Batch{}, fmt.Errorf("%w: batch is not valid JSON: %v", apperrors.ErrInvalidInput, err)
	}
	return batch, nil
}

func writeOutcome(stdout io.Writer, outPath string, outcome models.Outcome) error {
	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}
