package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/runs"
	"github.com/wonny/delaycast/pkg/database"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "학습 실행 이력 조회",
	Long: `Shows the training run history stored in PostgreSQL (DATABASE_URL).

Subcommands:
  list  - recent runs
  show  - one run with every candidate's metrics

Example:
  go run ./cmd/delaycast runs list --limit 10
  go run ./cmd/delaycast runs show 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
}

var (
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  listRuns,
	}

	runsShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "실행 상세",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	runsLimit int
	runsJSON  bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs")
	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "print JSON")
}

func openRuns() (*runs.Repository, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return runs.NewRepository(db.Pool), db.Close, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	repo, closeDB, err := openRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := repo.List(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if runsJSON {
		return json.NewEncoder(w).Encode(list)
	}
	if len(list) == 0 {
		printWarning(w, "No training runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tSELECTED\tF1\tROWS\tSOURCE")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%d/%d\t%s\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04"), r.Status, dash(r.Selected),
			r.F1, r.TrainRows, r.TestRows, r.Source)
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("run id must be a UUID: %w", err)
	}

	repo, closeDB, err := openRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	run, err := repo.Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if runsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	rows := [][2]string{
		{"Status", run.Status},
		{"Started", run.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration", run.FinishedAt.Sub(run.StartedAt).Round(1e6).String()},
		{"Source", run.Source},
		{"Rows", fmt.Sprintf("%d train / %d test", run.TrainRows, run.TestRows)},
		{"Artifact", dash(run.ArtifactPath)},
	}
	if run.Error != "" {
		rows = append(rows, [2]string{"Error", run.Error})
	}
	printHeader(w, "Run "+run.RunID.String(), rows)
	if len(run.Candidates) > 0 {
		printCandidates(w, run.Candidates, run.Selected)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
