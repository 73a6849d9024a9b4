package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cistash/cistash"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <files...>",
	Short: "Upload files to a named cache",
	Long:  "Upload files (or directories with --recursive) as a cache entry. Files above the threshold are deduplicated against all other caches in the bucket.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().String("name", "", "cache name (required)")
	uploadCmd.Flags().Uint64("threshold", cistash.DefaultCacheThreshold, "inline/dedup size boundary in bytes")
	uploadCmd.Flags().Int("max-in-flight", cistash.DefaultMaxInFlight, "maximum concurrent uploads")
	uploadCmd.Flags().Bool("recursive", false, "expand directories")
	uploadCmd.Flags().Bool("dry-run", false, "report decisions without uploading")
	uploadCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name, _ := cmd.Flags().GetString("name")
	threshold, _ := cmd.Flags().GetUint64("threshold")
	maxInFlight, _ := cmd.Flags().GetInt("max-in-flight")
	recursive, _ := cmd.Flags().GetBool("recursive")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	store, err := connect(ctx)
	if err != nil {
		return err
	}

	cache := cistash.New(store,
		cistash.WithCacheThreshold(threshold),
		cistash.WithMaxInFlight(maxInFlight),
		cistash.WithRecursive(recursive),
		cistash.WithDryRun(dryRun),
		cistash.WithLogger(newLogger()),
	)

	if err := cache.Upload(ctx, name, args); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Uploaded %d path(s) to cache %s\n", len(args), name)
	return nil
}
