package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cistash/cistash"
	"github.com/cistash/cistash/internal/s3store"
)

var rootCmd = &cobra.Command{
	Use:   "cistash",
	Short: "Deduplicating artifact cache in S3",
	Long:  "Ship build and CI outputs between machines through an S3-compatible bucket without re-transferring identical bytes.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/cistash/config.yaml)")
	rootCmd.PersistentFlags().String("bucket", "cistash", "S3 bucket")
	rootCmd.PersistentFlags().String("endpoint", "", "S3 endpoint (e.g. http://localhost:9000)")
	rootCmd.PersistentFlags().String("region", "us-east-1", "S3 region")
	rootCmd.PersistentFlags().Bool("create-bucket", false, "create the bucket when missing")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	viper.BindPFlag("bucket", rootCmd.PersistentFlags().Lookup("bucket"))
	viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("create_bucket", rootCmd.PersistentFlags().Lookup("create-bucket"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CISTASH")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cistash")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "cistash")
	}
	return ".cistash"
}

func connect(ctx context.Context) (*s3store.S3Store, error) {
	return s3store.Connect(ctx, s3store.Config{
		Bucket:       viper.GetString("bucket"),
		Endpoint:     viper.GetString("endpoint"),
		Region:       viper.GetString("region"),
		AccessKey:    viper.GetString("access_key"),
		SecretKey:    viper.GetString("secret_key"),
		CreateBucket: viper.GetBool("create_bucket"),
	})
}

func newLogger() cistash.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return cistash.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
