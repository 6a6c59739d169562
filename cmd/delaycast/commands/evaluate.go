package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/features"
	"github.com/wonny/delaycast/internal/model"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "저장된 모델 평가",
	Long: `Scores an order file with a saved artifact and prints accuracy,
precision, recall, F1 and the confusion matrix. Customer risk comes from
the artifact's risk table, exactly as at serve time.

Example:
  go run ./cmd/delaycast evaluate --data orders_2025q1.csv
  go run ./cmd/delaycast evaluate --model model/delivery_delay_model.bin --source postgres`,
	RunE: runEvaluate,
}

var (
	evalData  dataFlags
	evalModel string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evalData.register(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalModel, "model", "", "artifact path (default MODEL_PATH, else the search list)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	if evalModel != "" {
		cfg.Model.Path = evalModel
	}

	path, err := artifact.ResolvePath(cfg.ModelSearchPaths())
	if err != nil {
		return err
	}
	m, err := artifact.Load(path)
	if err != nil {
		return err
	}

	source, closeSource, err := openSource(cfg, evalData, log)
	if err != nil {
		return err
	}
	defer closeSource()

	orderList, _, err := source.Load(cmd.Context())
	if err != nil {
		return err
	}

	derived, err := features.Derive(orderList)
	if err != nil {
		return err
	}
	table, y := features.Assemble(derived, m.RiskTable())

	pred, err := m.Predict(table)
	if err != nil {
		return err
	}
	metrics, err := model.Evaluate(y, pred)
	if err != nil {
		return err
	}

	info := m.Info()
	w := cmd.OutOrStdout()
	printHeader(w, "Evaluation", [][2]string{
		{"Artifact", path},
		{"Model", fmt.Sprintf("%s (run %s)", info.Candidate, info.RunID)},
		{"Source", source.Name()},
		{"Orders", fmt.Sprintf("%d (%d delayed)", len(y), features.Classes(y)[1])},
	})
	fmt.Fprintf(w, "  accuracy   %.3f\n", metrics.Accuracy)
	fmt.Fprintf(w, "  precision  %.3f\n", metrics.Precision)
	fmt.Fprintf(w, "  recall     %.3f\n", metrics.Recall)
	fmt.Fprintf(w, "  f1         %.3f   (held-out at training: %.3f)\n", metrics.F1, info.Metrics.F1)
	fmt.Fprintln(w)
	printConfusion(w, metrics.Confusion)

	return nil
}
