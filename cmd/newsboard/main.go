package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"newsboard/internal/config"
	"newsboard/internal/headlines"
	"newsboard/internal/logger"
	"newsboard/internal/model"
	"newsboard/internal/newsapi"
	web "newsboard/internal/server"
	"newsboard/internal/store"
	"newsboard/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	redisAddr  string
	badgerPath string

	warmSearch   string
	warmCategory string
	warmCountry  string
)

var rootCmd = &cobra.Command{
	Use:   "newsboard",
	Short: "newsboard - top headlines by country and category",
}

var serverCmd = &cobra.Command{
	Use:   "server [port]",
	Short: "Start the web server and prefetch worker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		log, err := logger.New(cfg.Env)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Initialize Store (FULL MODE - Redis + Badger)
		st, err := store.NewHybridStore(cfg.RedisAddr, cfg.BadgerPath)
		if err != nil {
			log.Error("Failed to init store", zap.Error(err))
			return err
		}
		defer st.Close()

		if cfg.APIKey == "" {
			log.Warn("NEWSAPI is not set; the headlines API will reject requests")
		}

		client := newsapi.NewClient(newsapi.Options{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.RequestTimeout,
		})
		svc := headlines.NewService(client, st, cfg.CacheTTL, log)

		// Everything still using the store has to finish before it closes
		var bg sync.WaitGroup
		defer func() {
			stop()
			bg.Wait()
			svc.Wait()
		}()

		bg.Add(2)
		go func() {
			defer bg.Done()
			st.RunGC(ctx, 5*time.Minute)
		}()
		w := worker.NewWorker(st, svc, log)
		go func() {
			defer bg.Done()
			w.Start(ctx)
		}()

		srv, err := web.NewServer(svc, st, log, web.Options{StaticDir: cfg.StaticDir})
		if err != nil {
			log.Error("Failed to init web server", zap.Error(err))
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.Addr())
		}()
		log.Info("Application is listening",
			zap.Int("port", cfg.Port),
			zap.Duration("cache_ttl", cfg.CacheTTL))

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("Web server stopped", zap.Error(err))
				return err
			}
		case <-ctx.Done():
			log.Info("Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
		}

		log.Info("Goodbye!")
		return nil
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Queue a prefetch so the next matching search is served from cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}

		log, err := logger.New(cfg.Env)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		defer log.Sync()

		f, err := model.NewFilter(warmSearch, warmCategory, warmCountry)
		if err != nil {
			return err
		}
		if f.IsEmpty() {
			return fmt.Errorf("at least one of --search, --category or --country is required")
		}

		// Initialize Store (CLIENT MODE - Redis Only)
		// Passing "" as the second argument ensures we don't try to open the BadgerDB file lock.
		st, err := store.NewHybridStore(cfg.RedisAddr, "")
		if err != nil {
			return err
		}
		defer st.Close()

		job := model.NewJob(f)
		if err := st.PushJob(cmd.Context(), job); err != nil {
			return fmt.Errorf("failed to queue prefetch: %w", err)
		}

		log.Info("Prefetch queued",
			zap.String("id", job.ID.String()),
			zap.Stringer("filter", f))
		return nil
	},
}

// loadConfig resolves the config file, environment and positional port, then
// applies any flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(configPath, args)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("redis") {
		cfg.RedisAddr = redisAddr
	}
	if cmd.Flags().Changed("badger") {
		cfg.BadgerPath = badgerPath
	}
	return cfg, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "newsboard.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "localhost:6379", "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger", "./badger-data", "Path to BadgerDB data directory (empty disables it)")

	warmCmd.Flags().StringVar(&warmSearch, "search", "", "Search term")
	warmCmd.Flags().StringVar(&warmCategory, "category", "", "Category, e.g. business")
	warmCmd.Flags().StringVar(&warmCountry, "country", "", "Country code, e.g. us")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(warmCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
