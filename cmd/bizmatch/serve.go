package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"bizmatch/internal/catalog"
	"bizmatch/internal/db"
	"bizmatch/internal/events"
	"bizmatch/internal/grpcserver"
	"bizmatch/internal/httpapi"
	"bizmatch/internal/identity"
	"bizmatch/internal/lifecycle"
	"bizmatch/internal/recommender"
	"bizmatch/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engagement service (HTTP and gRPC APIs)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("refresh", false, "also run the recommendation refresher in this process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log, cfg, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	// ── Services ─────────────────────────────────────────────────────────────
	st := store.NewPostgres(pool)
	feed := events.NewRedisFeed(rdb, log)
	cache := store.NewRecommendationCache(rdb, cfg.RecommendCacheTTL())

	policy := lifecycle.Policy{Split: cfg.SplitPolicy(), DefaultAssignmentType: cfg.DefaultAssignmentType}
	eng := lifecycle.NewService(st, feed, policy, log.Named("lifecycle"))
	cat := catalog.NewService(st, cache, cfg.SplitPolicy(), log.Named("catalog"))

	verifier, err := identity.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	refresh, _ := cmd.Flags().GetBool("refresh")
	if refresh {
		sched := recommender.NewScheduler(
			recommender.NewRefresher(st, cache, feed, log.Named("recommender")),
			cfg.RecommendIntervalHours, log.Named("scheduler"),
		)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      httpapi.NewHandler(eng, cat, feed, log.Named("http"), version).Routes(verifier),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── gRPC server ──────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(identity.UnaryServerInterceptor(verifier)))
	hs := grpcserver.Register(grpcSrv, grpcserver.NewServer(eng, cat))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("version", version), zap.String("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		hs.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown error", zap.Error(err))
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
