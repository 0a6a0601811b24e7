package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/app"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/metrics"
)

// batchResult is one row of a batch run.
type batchResult struct {
	File       string  `json:"file"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Platform   string  `json:"platform,omitempty"`
	Rows       int     `json:"rows,omitempty"`
	TotalSales float64 `json:"total_sales,omitempty"`
	Warnings   int     `json:"warnings,omitempty"`
	ID         string  `json:"id,omitempty"`
}

// newBatchCmd creates the batch subcommand.
func newBatchCmd() *cobra.Command {
	var (
		platform string
		workers  int
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Analyze many sales exports",
		Long: `Batch analyzes every file independently with a pool of workers and prints
one summary row per file. A failing file does not stop the others; the
command exits non-zero when any file failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer closeServices(svc)

			start := time.Now()
			results := runBatch(ctx, svc, args, platform, workers, save)

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}

			if outputJSON {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Success {
						status = r.Error
					}
					rows = append(rows, []string{
						r.File, r.Platform, fmt.Sprint(r.Rows),
						fmt.Sprintf("%.2f", r.TotalSales), fmt.Sprint(r.Warnings), status,
					})
				}
				ui.Section("Batch")
				ui.Table([]string{"File", "Platform", "Rows", "Total Sales", "Warnings", "Status"}, rows)
				ui.Info("Processed %d files in %s", len(results), FormatDuration(time.Since(start)))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			ui.Success("All %d files analyzed", len(results))
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "marketplace of every export")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "files analyzed concurrently")
	cmd.Flags().BoolVar(&save, "save", false, "save every analysis to the record store")

	return cmd
}

// runBatch analyzes paths on a bounded worker pool. Results keep the input
// order.
func runBatch(ctx context.Context, svc *app.Services, paths []string, platform string, workers int, save bool) []batchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]batchResult, len(paths))
	progress := ui.ProgressBar("analyzing", int64(len(paths)))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = analyzeOne(ctx, svc, paths[i], platform, save)
				progress.Increment()
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	progress.Wait()

	return results
}

func analyzeOne(ctx context.Context, svc *app.Services, path, platform string, save bool) batchResult {
	res := batchResult{File: filepath.Base(path)}

	up, err := readUpload(ui, path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req := analyzer.Request{Upload: up, Platform: platform}

	resp, err := svc.Analyzer.Analyze(ctx, req)
	if err != nil {
		res.Error = analyzer.Failure(err).Error
		logger.Debug().Str("file", path).Err(err).Msg("batch item failed")
		return res
	}

	res.Success = true
	res.Platform = resp.Platform
	res.Warnings = len(resp.ColumnMappingIssues)
	if s, ok := resp.Analysis[metrics.KeySummary].(map[string]any); ok {
		if n, ok := s["row_count"].(int); ok {
			res.Rows = n
		}
		if v, ok := s["total_sales"].(float64); ok {
			res.TotalSales = v
		}
	}

	if save {
		id, err := saveAnalysis(ctx, svc.Store, req, resp)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.ID = id
	}
	return res
}
