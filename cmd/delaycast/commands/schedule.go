package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/scheduler"
	"github.com/wonny/delaycast/internal/scheduler/jobs"
	"github.com/wonny/delaycast/internal/training"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "주기적 재학습 스케줄러 시작",
	Long: `Runs the retraining job on a cron schedule until interrupted.

Each run reloads the orders, trains every candidate and atomically replaces
the artifact. A server started with --watch picks the new model up.
Data errors are not retried; other failures are retried with a pause.
With DATABASE_URL set, run history older than --retention is deleted daily.

Schedules use 5-field cron syntax or descriptors:
  "@weekly", "@daily", "0 3 * * 1" (Mondays 03:00)

Example:
  go run ./cmd/delaycast schedule
  go run ./cmd/delaycast schedule --cron "0 3 * * 1" --run-now --min-f1 0.5`,
	RunE: runSchedule,
}

var (
	scheduleData   dataFlags
	scheduleCron   string
	scheduleConfig string
	scheduleOut    string
	scheduleMinF1  float64
	scheduleNow    bool
	scheduleRetry  time.Duration
	scheduleKeep   time.Duration
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleData.register(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron schedule (default RETRAIN_SCHEDULE)")
	scheduleCmd.Flags().StringVar(&scheduleConfig, "config", "", "training YAML (default TRAINING_CONFIG)")
	scheduleCmd.Flags().StringVar(&scheduleOut, "out", "", "artifact path (default MODEL_PATH, else the first search path)")
	scheduleCmd.Flags().Float64Var(&scheduleMinF1, "min-f1", 0, "do not publish a model whose held-out F1 is below this")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "run-now", false, "run once immediately before waiting for the schedule")
	scheduleCmd.Flags().DurationVar(&scheduleRetry, "retry-delay", time.Minute, "pause between retries of a failed run")
	scheduleCmd.Flags().DurationVar(&scheduleKeep, "retention", 90*24*time.Hour, "delete run history older than this (0 keeps everything)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	configPath := cfg.TrainingConfigPath
	if scheduleConfig != "" {
		configPath = scheduleConfig
	}
	trainCfg, err := training.LoadConfig(configPath)
	if err != nil {
		return err
	}

	retrainCfg := jobs.RetrainConfig{
		Schedule:     cfg.RetrainSchedule,
		ArtifactPath: cfg.ModelSearchPaths()[0],
		MinF1:        scheduleMinF1,
		Quality:      trainCfg.Quality,
	}
	if scheduleCron != "" {
		retrainCfg.Schedule = scheduleCron
	}
	if scheduleOut != "" {
		retrainCfg.ArtifactPath = scheduleOut
	}

	source, closeSource, err := openSource(cfg, scheduleData, log)
	if err != nil {
		return err
	}
	defer closeSource()

	store, closeStore := openRunStore(cfg, log)
	defer closeStore()

	trainer := training.NewTrainer(trainCfg, nil, log.Zerolog())
	job := jobs.NewRetrainJob(retrainCfg, source, trainer, store, log.Zerolog())

	s := scheduler.New(log.Zerolog(), scheduler.WithRetry(2, scheduleRetry))
	if err := s.AddJob(job); err != nil {
		return err
	}
	if pruner, ok := store.(jobs.Pruner); ok && scheduleKeep > 0 {
		if err := s.AddJob(jobs.NewPruneRunsJob(pruner, scheduleKeep, log.Zerolog())); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cmd.OutOrStdout()
	next, _ := s.Next(job.Name())
	printHeader(w, "Retraining scheduler", [][2]string{
		{"Schedule", retrainCfg.Schedule},
		{"Next run", next.Format(time.RFC1123)},
		{"Source", source.Name()},
		{"Artifact", retrainCfg.ArtifactPath},
	})

	if scheduleNow {
		result, err := s.RunNow(ctx, job.Name())
		if err != nil {
			return err
		}
		if result.Success {
			printSuccess(w, fmt.Sprintf("Initial run finished in %.1fs", result.Duration.Seconds()))
		} else {
			printWarning(w, "Initial run failed: "+result.Error)
		}
	}

	s.Start()
	fmt.Fprintln(w, "Press Ctrl+C to stop")
	<-ctx.Done()
	s.Stop()

	return nil
}
