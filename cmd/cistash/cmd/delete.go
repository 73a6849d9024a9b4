package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cistash/cistash"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a cache",
	Long:  "Delete a cache's manifest and inline files. Shared deduplicated objects stay until expired.",
	Args:  cobra.NoArgs,
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().String("name", "", "cache name (required)")
	deleteCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name, _ := cmd.Flags().GetString("name")

	store, err := connect(ctx)
	if err != nil {
		return err
	}

	cache := cistash.New(store, cistash.WithLogger(newLogger()))
	if err := cache.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Deleted cache %s\n", name)
	return nil
}
