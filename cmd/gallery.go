package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-match/internal/config"
	"github.com/kozaktomas/face-match/internal/constants"
	"github.com/kozaktomas/face-match/internal/embedding"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the identity gallery",
}

var galleryAddCmd = &cobra.Command{
	Use:   "add <identity> <images...>",
	Short: "Register reference photos for an identity",
	Long: `Register one or more reference photos for an identity. Each photo
must contain exactly one face; its embedding becomes a reference the
matcher compares detected faces against.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGalleryAdd,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered identities",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

var galleryRemoveCmd = &cobra.Command{
	Use:   "remove <identity>",
	Short: "Remove an identity and all its references",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryRemove,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryAddCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryRemoveCmd)
}

func runGalleryAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	identity := args[0]
	for _, path := range args[1:] {
		if err := registerPhoto(ctx, be, identity, path); err != nil {
			return err
		}
		fmt.Printf("Registered %s for %s\n", path, identity)
	}
	return nil
}

// registerPhoto extracts the single-face embedding from a photo and
// registers it as a reference.
func registerPhoto(ctx context.Context, be *backend, identity, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	normalized, err := embedding.Normalize(data, constants.MaxImageSize)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	faces, err := be.provider.DetectFaces(ctx, normalized)
	if err != nil {
		return fmt.Errorf("face detection failed for %s: %w", path, err)
	}
	if len(faces) != 1 {
		return fmt.Errorf("%s must contain exactly one face, found %d", path, len(faces))
	}

	if err := be.gallery.Register(ctx, identity, faces[0].Embedding); err != nil {
		return fmt.Errorf("failed to register %s: %w", identity, err)
	}
	return nil
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	snap, err := be.gallery.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read gallery: %w", err)
	}

	if snap.Len() == 0 {
		fmt.Println("Gallery is empty")
		return nil
	}

	fmt.Printf("%d identities, %d references:\n", snap.Len(), snap.ReferenceCount())
	for ident := range snap.All() {
		fmt.Printf("  %-30s %d references\n", ident.ID, len(ident.References))
	}
	return nil
}

func runGalleryRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	if err := be.gallery.Remove(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}
