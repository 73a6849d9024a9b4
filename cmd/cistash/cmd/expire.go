package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cistash/cistash"
)

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Delete shared objects older than a cutoff age",
	Args:  cobra.NoArgs,
	RunE:  runExpire,
}

func init() {
	expireCmd.Flags().Int("age-days", 30, "delete objects older than this many days")

	rootCmd.AddCommand(expireCmd)
}

func runExpire(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ageDays, _ := cmd.Flags().GetInt("age-days")

	store, err := connect(ctx)
	if err != nil {
		return err
	}

	cache := cistash.New(store, cistash.WithLogger(newLogger()))
	if err := cache.Expire(ctx, ageDays); err != nil {
		return fmt.Errorf("expire failed: %w", err)
	}
	return nil
}
