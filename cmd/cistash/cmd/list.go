package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cistash/cistash"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List caches, or the files in one cache",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("name", "", "cache to list; omit to list cache names")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name, _ := cmd.Flags().GetString("name")

	store, err := connect(ctx)
	if err != nil {
		return err
	}
	cache := cistash.New(store, cistash.WithLogger(newLogger()))

	if name == "" {
		names, err := cache.Caches(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		if len(names) == 0 {
			fmt.Println("(no caches)")
		}
		return nil
	}

	entries, err := cache.Entries(ctx, name)
	if err != nil {
		return err
	}

	width := 30
	for _, e := range entries {
		if len(e.Path) > width {
			width = len(e.Path)
		}
	}
	for _, e := range entries {
		fmt.Printf("%-*s %10d\n", width, e.Path, e.Size)
	}
	return nil
}
