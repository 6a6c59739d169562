package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/orders"
	"github.com/wonny/delaycast/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "데이터베이스 관리",
	Long: `Manages the optional PostgreSQL database (DATABASE_URL).

Subcommands:
  migrate  - create the orders and training_runs tables
  seed     - copy an order file into the orders table
  check    - ping the database and show pool statistics

Example:
  go run ./cmd/delaycast db migrate
  go run ./cmd/delaycast db seed --data ecommerce_orders_clean.csv`,
}

var (
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "스키마 생성",
		RunE:  runMigrate,
	}

	dbSeedCmd = &cobra.Command{
		Use:   "seed",
		Short: "주문 데이터 적재",
		RunE:  runSeed,
	}

	dbCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "연결 확인",
		RunE:  runDBCheck,
	}

	migrationsDir string
	seedData      dataFlags
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd, dbSeedCmd, dbCheckCmd)

	dbMigrateCmd.Flags().StringVar(&migrationsDir, "dir", database.DefaultMigrationsDir, "migration directory")
	seedData.register(dbSeedCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := database.Migrate(cmd.Context(), db.Pool, migrationsDir)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, f := range files {
		fmt.Fprintf(w, "[Migrate] applied %s\n", f)
	}
	printSuccess(w, fmt.Sprintf("%d migrations applied", len(files)))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	// the seed input is always a file
	seedData.source = "csv"
	source, closeSource, err := openSource(cfg, seedData, log)
	if err != nil {
		return err
	}
	defer closeSource()

	orderList, _, err := source.Load(cmd.Context())
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	table := cfg.Orders.Table
	if seedData.table != "" {
		table = seedData.table
	}
	if err := orders.NewPostgresSource(db.Pool, table, log.Zerolog()).Insert(cmd.Context(), orderList); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d orders copied from %s into %s", len(orderList), source.Name(), table))
	return nil
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(cmd.Context())
	if err != nil {
		return err
	}

	printHeader(cmd.OutOrStdout(), "Database", [][2]string{
		{"Healthy", fmt.Sprintf("%v", status.Healthy)},
		{"Ping", status.ResponseTime.String()},
		{"Conns", fmt.Sprintf("%d total / %d idle / %d max", status.TotalConns, status.IdleConns, status.MaxConns)},
	})
	return nil
}
