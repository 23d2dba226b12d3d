package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bizmatch/internal/catalog"
	"bizmatch/internal/config"
	"bizmatch/internal/db"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
	"bizmatch/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print the score and profit breakdown of a job/talent pair",
	Long: "Print the score and profit breakdown of a job/talent pair.\n" +
		"With --demo, score against a built-in in-memory data set instead of the database;\n" +
		"without --job/--talent the demo prints every pair.",
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("job", "", "job id")
	scoreCmd.Flags().String("talent", "", "talent profile id")
	scoreCmd.Flags().Bool("demo", false, "use the built-in demo data set")
	scoreCmd.Flags().Float64("share-ratio", matcher.DefaultShareRatio, "each side's share of the profit")
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	jobID, _ := cmd.Flags().GetString("job")
	talentID, _ := cmd.Flags().GetString("talent")
	demo, _ := cmd.Flags().GetBool("demo")
	ratio, _ := cmd.Flags().GetFloat64("share-ratio")

	split := matcher.SplitPolicy{ShareRatio: ratio}
	if err := split.Validate(); err != nil {
		return err
	}

	var st catalog.Store
	if demo {
		mem, err := demoStore(ctx)
		if err != nil {
			return err
		}
		st = mem
	} else {
		if jobID == "" || talentID == "" {
			return fmt.Errorf("--job and --talent are required without --demo")
		}
		cfg, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.ValidateDatabase(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		st = store.NewPostgres(pool)
	}

	cat := catalog.NewService(st, nil, split, zap.NewNop())
	if jobID != "" || talentID != "" {
		b, err := cat.Score(ctx, jobID, talentID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), b)
	}

	jobs, err := cat.ListActiveJobs(ctx)
	if err != nil {
		return err
	}
	talents, err := cat.ListAvailableTalents(ctx)
	if err != nil {
		return err
	}
	var out []*catalog.Breakdown
	for _, j := range jobs {
		for _, t := range talents {
			b, err := cat.Score(ctx, j.ID, t.ID)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}

func demoStore(ctx context.Context) (*store.Memory, error) {
	daily := int64(18000)
	st := store.NewMemory()
	jobs := []model.JobPost{
		{
			ID: "demo-job-frontend", UserID: "demo-client", Title: "Frontend rebuild",
			Budget: 300000, WorkDays: 20, SkillTags: []string{"React", "TypeScript"},
			CarrierTags: []string{"docomo"}, WorkType: model.WorkTypeRemote, Status: model.JobStatusActive,
		},
		{
			ID: "demo-job-backend", UserID: "demo-client", Title: "Payments backend",
			Budget: 400000, DailyRate: &daily, WorkDays: 20, SkillTags: []string{"Go", "PostgreSQL"},
			WorkType: model.WorkTypeOnsite, Status: model.JobStatusActive,
		},
	}
	talents := []model.TalentProfile{
		{
			ID: "demo-talent-react", UserID: "demo-dev-1", Name: "React developer", Rate: 10000,
			Skills: []string{"React", "TypeScript", "Next.js"}, Carriers: []string{"docomo"},
			WorkType: model.WorkTypeAny, Availability: model.AvailabilityAvailable,
		},
		{
			ID: "demo-talent-go", UserID: "demo-dev-2", Name: "Go engineer", Rate: 20000,
			Skills: []string{"Go"}, WorkType: model.WorkTypeRemote, Availability: model.AvailabilityAvailable,
		},
	}
	for i := range jobs {
		if err := st.InsertJob(ctx, &jobs[i]); err != nil {
			return nil, err
		}
	}
	for i := range talents {
		if err := st.InsertTalent(ctx, &talents[i]); err != nil {
			return nil, err
		}
	}
	return st, nil
}
