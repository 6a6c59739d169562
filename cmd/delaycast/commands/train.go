package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/orders"
	"github.com/wonny/delaycast/internal/runs"
	"github.com/wonny/delaycast/internal/training"
	"github.com/wonny/delaycast/pkg/config"
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "모델 학습 + 아티팩트 저장",
	Long: `Trains every configured candidate on the order history, selects the
one with the best held-out F1 and writes it as the model artifact.

Pipeline:
  load → impute → derive label → stratified split → customer risk
  (training partition only) → fit candidates → grid search → select → save

A data problem (missing column, unparseable value, a single label class)
aborts the run and no artifact is written.

Example:
  go run ./cmd/delaycast train --data ecommerce_orders_clean.csv
  go run ./cmd/delaycast train --data orders.csv --delimiter ";" --encoding iso-8859-1
  go run ./cmd/delaycast train --source postgres --config configs/training.yaml`,
	RunE: runTrain,
}

var (
	trainData   dataFlags
	trainConfig string
	trainOut    string
	trainNoGrid bool
)

func init() {
	rootCmd.AddCommand(trainCmd)

	trainData.register(trainCmd)
	trainCmd.Flags().StringVar(&trainConfig, "config", "", "training YAML (default TRAINING_CONFIG, else built-in defaults)")
	trainCmd.Flags().StringVar(&trainOut, "out", "", "artifact path (default MODEL_PATH, else "+config.DefaultModelPaths[0]+")")
	trainCmd.Flags().BoolVar(&trainNoGrid, "no-grid", false, "skip the random forest grid search")
}

func runTrain(cmd *cobra.Command, args []string) error {
	started := time.Now()

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	configPath := cfg.TrainingConfigPath
	if trainConfig != "" {
		configPath = trainConfig
	}
	trainCfg, err := training.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if trainNoGrid {
		trainCfg.GridSearch.Enabled = false
	}

	out := trainOut
	if out == "" {
		out = cfg.ModelSearchPaths()[0]
	}

	// 2. Order source + optional run history
	source, closeSource, err := openSource(cfg, trainData, log)
	if err != nil {
		return err
	}
	defer closeSource()

	store, closeStore := openRunStore(cfg, log)
	defer closeStore()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	printHeader(w, "Training", [][2]string{
		{"Source", source.Name()},
		{"Artifact", out},
		{"Test size", fmt.Sprintf("%.2f", trainCfg.TestSize)},
		{"Seed", fmt.Sprintf("%d", trainCfg.Seed)},
		{"Grid", fmt.Sprintf("%v (%d points)", trainCfg.GridSearch.Enabled, len(trainCfg.GridSearch.Points()))},
	})

	fail := func(err error) error {
		if store != nil {
			if serr := store.Save(ctx, runs.Failed(started, source.Name(), err)); serr != nil {
				log.WithError(serr).Warn("Failed to record training run")
			}
		}
		return err
	}

	// 3. Load orders
	orderList, snapshot, err := source.Load(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(w, "[Data] %d orders loaded, %d cells imputed, coverage %.1f%%\n",
		snapshot.TotalRows, snapshot.TotalImputed(), snapshot.CoverageRate()*100)
	if err := orders.NewQualityGate(trainCfg.Quality).Check(snapshot); err != nil {
		return fail(err)
	}

	// 4. Train
	result, err := training.NewTrainer(trainCfg, nil, log.Zerolog()).Run(ctx, orderList)
	if err != nil {
		return fail(err)
	}
	if result.Grid != nil {
		fmt.Fprintf(w, "[Grid] %d/%d points evaluated, best mean F1 %.3f (timed out: %v)\n",
			result.Grid.Evaluated, result.Grid.Total, result.Grid.Best.MeanF1, result.Grid.TimedOut)
	}

	// 5. Save artifact
	if err := artifact.Save(artifact.FromResult(result), out); err != nil {
		return fail(err)
	}

	if store != nil {
		if err := store.Save(ctx, runs.Succeeded(result, source.Name(), out)); err != nil {
			log.WithError(err).Warn("Failed to record training run")
		}
	}

	best := result.Best()
	fmt.Fprintln(w)
	printCandidates(w, result.Summaries(), best.Name)
	printSuccess(w, fmt.Sprintf("Run %s: selected %s (F1 %.3f), %d train / %d test rows, saved to %s in %.1fs",
		result.RunID, best.Name, best.Metrics.F1, result.TrainRows, result.TestRows, out, time.Since(started).Seconds()))

	return nil
}
