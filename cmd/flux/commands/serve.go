package commands

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/api"
	"github.com/wonny/fluxrx/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

요청 본문에 가격 시계열을 담아 보내면 엔진 결과를 JSON으로 반환합니다.
REDIS_ENABLED=true면 레이트 리밋을 Redis 슬라이딩 윈도우로 인스턴스 간 공유합니다.

Endpoints:
  GET  /health              - Health check
  GET  /metrics             - Prometheus metrics
  POST /api/v1/metrics      - 단일 자산 지표
  POST /api/v1/screen       - 스크리닝
  POST /api/v1/optimize     - 포트폴리오 최적화
  POST /api/v1/covariance   - 공분산/상관 행렬
  POST /api/v1/hurst        - Hurst 지수

Example:
  go run ./cmd/flux serve
  go run ./cmd/flux serve --port 9000`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	log := rt.log

	// Override port if flag is set
	if servePort != "" {
		cfg.Port = servePort
	}

	// Rate limiter: Redis (공유) 또는 로컬 토큰 버킷
	var limiter api.Limiter = api.NewLocalLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		rt.redis = client
		limiter = api.NewRedisLimiter(client, int(math.Ceil(cfg.RateLimit.RequestsPerSecond)))
		log.Info("Using Redis rate limiter")
	}

	handler := api.NewHandler(rt.engine, log)
	router := api.NewRouter(handler, log, api.RouterOptions{
		Limiter: limiter,
		Metrics: rt.metrics,
		Version: version,
	})
	server := api.New(cfg, log, router)

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"config_hash": rt.engine.ConfigHash(),
	}).Info("API server started")
	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
