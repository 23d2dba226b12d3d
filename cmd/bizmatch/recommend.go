package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizmatch/internal/db"
	"bizmatch/internal/events"
	"bizmatch/internal/recommender"
	"bizmatch/internal/store"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Run the recommendation refresher",
	Long: "Recompute every user's recommendations on a schedule and cache them in Redis.\n" +
		"With --once, run a single cycle and exit.",
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().Bool("once", false, "run one refresh cycle and exit")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	log, cfg, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	refresher := recommender.NewRefresher(
		store.NewPostgres(pool),
		store.NewRecommendationCache(rdb, cfg.RecommendCacheTTL()),
		events.NewRedisFeed(rdb, log),
		log.Named("recommender"),
	)

	if once, _ := cmd.Flags().GetBool("once"); once {
		stats, err := refresher.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("refresh complete",
			zap.Int("users", stats.Users),
			zap.Int("cached", stats.Cached),
			zap.Int("failed", stats.Failed),
			zap.Duration("took", stats.Duration),
		)
		return nil
	}

	sched := recommender.NewScheduler(refresher, cfg.RecommendIntervalHours, log.Named("scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	log.Info("shutting down")
	sched.Stop()
	return nil
}
