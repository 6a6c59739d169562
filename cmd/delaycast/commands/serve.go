package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/api"
	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/observability"
	"github.com/wonny/delaycast/internal/serving"
	"github.com/wonny/delaycast/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "예측 API 서버 시작",
	Long: `Loads the model artifact and serves predictions over HTTP.

The server refuses to start without a valid artifact; it never falls back
to an untrained model. With --watch the artifact file is reloaded when it
changes, and a failed reload keeps the current model.

Endpoints:
  GET  /health      - Liveness
  GET  /ready       - 200 once a model is loaded
  GET  /            - Service banner
  POST /predict     - Delay prediction for one order
  GET  /api/model   - Active artifact metadata
  GET  /api/runs    - Training run history (DATABASE_URL)
  GET  /metrics     - Prometheus metrics

Example:
  go run ./cmd/delaycast serve
  go run ./cmd/delaycast serve --port 8080 --model model/delivery_delay_model.bin --watch`,
	RunE: runServe,
}

var (
	servePort  string
	serveModel string
	serveWatch bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default PORT)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "artifact path (default MODEL_PATH, else the search list)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the artifact when the file changes (default MODEL_WATCH)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if serveModel != "" {
		cfg.Model.Path = serveModel
	}
	if cmd.Flags().Changed("watch") {
		cfg.Model.Watch = serveWatch
	}

	// 2. Initialize logger
	log := newLogger(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Load the artifact; no model, no server
	path, err := artifact.ResolvePath(cfg.ModelSearchPaths())
	if err != nil {
		return err
	}
	m, err := artifact.Load(path)
	if err != nil {
		return err
	}

	// 4. Optional prediction cache
	redisClient, err := redis.New(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cache serving.Cache
	switch {
	case redisClient.Enabled():
		cache = redis.NewCache(redisClient, "delaycast")
		log.Info("Prediction cache enabled (redis)")
	case cfg.MemoryCache.Enabled:
		memCache := serving.NewMemoryCache(cfg.MemoryCache.MaxEntries, log.Zerolog())
		go memCache.Sweep(ctx, time.Minute)
		cache = memCache
		log.Info("Prediction cache enabled (memory)")
	}

	// 5. Service + metrics
	metrics := observability.NewMetrics("delaycast")
	svc := serving.NewService(cache, cfg.Redis.TTL, metrics, log.Zerolog())
	svc.Swap(m)

	store, closeStore := openRunStore(cfg, log)
	defer closeStore()

	// 6. Hot reload
	if cfg.Model.Watch {
		go func() {
			err := artifact.Watch(ctx, path, svc.Swap, svc.ReloadFailed, log.Zerolog())
			if err != nil {
				log.WithError(err).Error("Artifact watcher stopped")
			}
		}()
	}

	// 7. Router + server
	router := api.NewRouter(api.Deps{
		Service: svc,
		Runs:    store,
		Metrics: metrics,
		Config:  cfg,
		Log:     log.Zerolog(),
	})
	server := api.New(cfg, log.Zerolog(), router)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	info := m.Info()
	w := cmd.OutOrStdout()
	printHeader(w, "delaycast API", [][2]string{
		{"Address", "http://localhost:" + cfg.Port},
		{"Model", fmt.Sprintf("%s (run %s)", info.Candidate, info.RunID)},
		{"Artifact", path},
		{"Watch", fmt.Sprintf("%v", cfg.Model.Watch)},
	})
	fmt.Fprintln(w, "Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
