package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/cachalot/pkg/bloom"
	"github.com/cuemby/cachalot/pkg/cache"
	"github.com/cuemby/cachalot/pkg/log"
	"github.com/cuemby/cachalot/pkg/metrics"
	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/storage/bolt"
	"github.com/cuemby/cachalot/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cachalot-demo",
	Short:   "cachalot-demo exercises the cachalot caching library against a local bbolt store",
	Version: "dev",
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "./cachalot-data", "Directory holding the bbolt database file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(getCmd, setCmd, touchCmd, metricsCmd)

	getCmd.Flags().String("manager", "", "Manager to resolve the key against (empty uses the default)")
	setCmd.Flags().String("manager", "", "Manager to resolve the key against (empty uses the default)")
	setCmd.Flags().Duration("ttl", 0, "Time-to-live for the written value (0 uses the cache default)")
	setCmd.Flags().StringSlice("tag", nil, "Tags to attach to the written value")
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

func newCache(cmd *cobra.Command) (*cache.Cache, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	raw, err := bolt.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt store: %w", err)
	}

	wrapped := storage.NewWrapper(raw, 5*time.Minute, storage.DefaultLockExpire)

	return cache.New(cache.Config{
		Storage:    wrapped,
		DefaultTTL: 5 * time.Minute,
		Bloom:      bloom.New(bloom.DefaultConfig),
	})
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Fetch a key; a miss is reported as an error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		managerName, _ := cmd.Flags().GetString("manager")

		c, err := newCache(cmd)
		if err != nil {
			return err
		}

		value, err := cache.Get(context.Background(), c, key, func(ctx context.Context) (string, error) {
			return "", fmt.Errorf("no value cached for %q and no executor configured for cachalot-demo get", key)
		}, optsForManager(managerName)...)
		if err != nil {
			return fmt.Errorf("get failed: %w", err)
		}

		fmt.Println(value)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Write a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		managerName, _ := cmd.Flags().GetString("manager")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		c, err := newCache(cmd)
		if err != nil {
			return err
		}

		setOpts := setOptsForManager(managerName, ttl, tags)
		rec, err := cache.Set(context.Background(), c, key, value, setOpts...)
		if err != nil {
			return fmt.Errorf("set failed: %w", err)
		}

		fmt.Printf("✓ set %s (createdAt=%d expiresIn=%dms)\n", rec.Key, rec.CreatedAt, rec.ExpiresIn)
		return nil
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch TAG [TAG...]",
	Short: "Advance one or more tags' versions, invalidating everything they cover",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCache(cmd)
		if err != nil {
			return err
		}
		if err := c.Touch(context.Background(), args); err != nil {
			return fmt.Errorf("touch failed: %w", err)
		}
		fmt.Printf("✓ touched %d tag(s)\n", len(args))
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Serve Prometheus metrics on the given address until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		fmt.Printf("serving metrics on http://%s/metrics\n", addr)
		http.Handle("/metrics", metrics.Handler())
		return http.ListenAndServe(addr, nil)
	},
}

func init() {
	metricsCmd.Flags().String("addr", "127.0.0.1:9090", "Address to serve /metrics on")
}

func optsForManager(managerName string) []types.GetOption {
	if managerName == "" {
		return nil
	}
	return []types.GetOption{types.WithManager(managerName)}
}

func setOptsForManager(managerName string, ttl time.Duration, tags []string) []types.SetOption {
	var opts []types.SetOption
	if managerName != "" {
		opts = append(opts, types.SetManager(managerName))
	}
	if ttl > 0 {
		opts = append(opts, types.SetExpiresIn(ttl))
	}
	if len(tags) > 0 {
		opts = append(opts, types.SetTags(tags...))
	}
	return opts
}
