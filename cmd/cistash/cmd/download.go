package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cistash/cistash"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a cache into a directory",
	Args:  cobra.NoArgs,
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().String("name", "", "cache name (required)")
	downloadCmd.Flags().String("out", ".", "destination directory")
	downloadCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name, _ := cmd.Flags().GetString("name")
	out, _ := cmd.Flags().GetString("out")

	store, err := connect(ctx)
	if err != nil {
		return err
	}

	cache := cistash.New(store, cistash.WithLogger(newLogger()))
	if err := cache.Download(ctx, name, out); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Downloaded cache %s to %s\n", name, out)
	return nil
}
