package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cuemby/mgs/pkg/api"
	"github.com/cuemby/mgs/pkg/cache"
	"github.com/cuemby/mgs/pkg/config"
	"github.com/cuemby/mgs/pkg/drainer"
	"github.com/cuemby/mgs/pkg/durablestore"
	"github.com/cuemby/mgs/pkg/grainstore"
	"github.com/cuemby/mgs/pkg/log"
	"github.com/cuemby/mgs/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mgsd",
	Short: "mgsd - Managed Grain Storage daemon",
	Long: `mgsd runs the Grain Storage Core, Cache Adapter, and Drainer for every
storage-name declared in its config file, exposed over gRPC for the host
runtime and over HTTP for health and Prometheus metrics.`,
	Version: Version,
	RunE:    runServe,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("mgsd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.Flags().StringP("config", "c", "mgs.yaml", "Path to mgs.yaml")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(logLevel, logJSON)
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("mgsd: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.SetVersion(Version)

	durable, closeDurable, err := buildDurableStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDurable()
	metrics.RegisterComponent("durablestore", true, cfg.DurableStore.Kind)

	var cacheAdapter cache.Adapter
	if len(cfg.Redis.Addrs) > 0 {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cacheAdapter = cache.NewRedisAdapter(client, cfg.ClusterID)
		metrics.RegisterComponent("cache", true, "redis")
		log.WithComponent("mgsd").Info().Strs("addrs", cfg.Redis.Addrs).Msg("cache adapter connected")
	} else {
		log.WithComponent("mgsd").Warn().Msg("no redis configured; every storage runs durable-store-only (no write-behind)")
	}

	dr := drainer.New(cfg.ClusterID)
	cores := make(map[string]*grainstore.Core, len(cfg.Storages))
	for _, s := range cfg.Storages {
		opts := s.GrainstoreOptions()
		core := grainstore.New(cfg.ClusterID, s.Name, s.Name, durable, cacheAdapter, opts)
		cores[s.Name] = core

		if cacheAdapter != nil && opts.WriteBehind.EnableWriteBehind {
			dr.Register(drainer.Registration{
				StorageName:         s.Name,
				Cache:               cacheAdapter,
				Durable:             durable,
				Options:             opts.WriteBehind,
				UseTenantPerStorage: opts.UseTenantPerStorage,
			})
		}
	}
	dr.Start()
	defer dr.Stop()
	metrics.RegisterComponent("drainer", true, "")

	server := api.NewServer(cores)
	metrics.RegisterComponent("api", true, "")
	errCh := make(chan error, 2)
	go func() {
		log.WithComponent("mgsd").Info().Str("addr", cfg.GRPCAddr).Msg("gRPC listener starting")
		errCh <- server.StartGRPC(cfg.GRPCAddr)
	}()
	go func() {
		log.WithComponent("mgsd").Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listener starting")
		errCh <- server.StartHTTP(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.WithComponent("mgsd").Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("mgsd").Error().Err(err).Msg("listener exited")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Stop(shutdownCtx)
	return nil
}

func buildDurableStore(ctx context.Context, cfg config.Config) (durablestore.Store, func(), error) {
	switch cfg.DurableStore.Kind {
	case "mongo":
		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.DurableStore.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("mgsd: connect mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, fmt.Errorf("mgsd: ping mongo: %w", err)
		}
		store := durablestore.NewMongoStore(client, cfg.DurableStore.Mongo.Database, cfg.DurableStore.Mongo.Collection)
		return store, func() { store.Close() }, nil
	default:
		store, err := durablestore.NewBoltStore(cfg.DurableStore.Bolt.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("mgsd: open bolt store: %w", err)
		}
		return store, func() { store.Close() }, nil
	}
}
