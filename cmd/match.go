package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-match/internal/config"
	"github.com/kozaktomas/face-match/internal/pipeline"
	"github.com/kozaktomas/face-match/internal/results"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Recognize faces in a single image",
	Long: `Recognize all faces in one image against the registered gallery.
Results are printed and persisted under the single-image namespace.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", 0, "Match distance threshold (defaults to MATCH_THRESHOLD)")
	matchCmd.Flags().Bool("json", false, "Print results as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	imageID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	single := be.newSingle(cfg, mustGetFloat64(cmd, "threshold"))

	res, err := single.Process(ctx, imageID, data)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	if err := be.results.Persist(ctx, results.NamespaceSingle, imageID, res); err != nil {
		return fmt.Errorf("failed to persist results: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResults(res)
	return nil
}

// printResults renders a result group for terminal output.
func printResults(res []pipeline.Result) {
	for _, r := range res {
		switch r.Status {
		case pipeline.StatusMatched:
			fmt.Printf("face %d: %s (distance %.4f, confidence %.1f%%)\n",
				r.FaceIndex, r.IdentityID, r.Distance, r.Confidence)
		case pipeline.StatusNoMatch:
			fmt.Printf("face %d: no match (nearest distance %.4f)\n", r.FaceIndex, r.Distance)
		case pipeline.StatusNoFaceDetected:
			fmt.Println("no face detected")
		case pipeline.StatusProcessingError:
			fmt.Printf("face %d: processing error: %s\n", r.FaceIndex, r.Error)
		}
	}
}
