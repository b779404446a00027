package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-match/internal/config"
	"github.com/kozaktomas/face-match/internal/pipeline"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk <images...>",
	Short: "Recognize faces in a batch of images",
	Long: `Recognize faces in many images concurrently over the worker pool.
Per-image results are persisted as they complete; output order always
matches the order the images were given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBulk,
}

func init() {
	rootCmd.AddCommand(bulkCmd)

	bulkCmd.Flags().Int("concurrency", 0, "Worker pool size (defaults to WORKER_POOL_SIZE)")
	bulkCmd.Flags().String("out", "", "Write all result groups as JSON to this file")
}

func runBulk(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Worker.PoolSize
	}

	refs := make([]pipeline.ImageRef, 0, len(args))
	for _, path := range args {
		refs = append(refs, pipeline.ImageRef{Name: path, Path: path})
	}

	single := be.newSingle(cfg, 0)
	jobs := pipeline.NewJobManager()
	bulk := pipeline.NewBulk(single, be.results, jobs, concurrency)

	job, err := bulk.Submit(ctx, refs)
	if err != nil {
		return fmt.Errorf("failed to submit batch: %w", err)
	}

	fmt.Printf("Processing %d images with %d workers (job %s)\n\n", len(refs), concurrency, job.ID)

	bar := progressbar.NewOptions(len(refs),
		progressbar.OptionSetDescription("Recognizing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	for {
		processed, _ := job.Progress()
		_ = bar.Set(processed)

		status := job.GetStatus()
		if status != pipeline.JobStatusPending && status != pipeline.JobStatusRunning {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = bar.Finish()
	fmt.Println()

	groups := job.Groups()
	matched, noMatch, noFace, failed := summarize(groups)
	fmt.Printf("\nJob %s: %d matched, %d unmatched, %d without faces, %d failed\n",
		job.GetStatus(), matched, noMatch, noFace, failed)
	if job.Error != "" {
		fmt.Printf("Job error: %s\n", job.Error)
	}

	if out := mustGetString(cmd, "out"); out != "" {
		data, err := json.MarshalIndent(groups, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		if err := os.WriteFile(out, data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Printf("Results written to %s\n", out)
	}
	return nil
}

// summarize counts face outcomes across all result groups.
func summarize(groups []pipeline.Group) (matched, noMatch, noFace, failed int) {
	for _, g := range groups {
		for _, r := range g.Results {
			switch r.Status {
			case pipeline.StatusMatched:
				matched++
			case pipeline.StatusNoMatch:
				noMatch++
			case pipeline.StatusNoFaceDetected:
				noFace++
			case pipeline.StatusProcessingError:
				failed++
			}
		}
	}
	return
}
