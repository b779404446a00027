// Package cmd implements the face-match command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-match",
	Short: "A face recognition service with gallery-based identity matching",
	Long: `Face Match detects faces in photos, computes their embeddings through
an external embedding service, and matches them against a gallery of
registered identities. It runs as a web service or as one-shot CLI
commands for single and bulk recognition.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
