package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/orders"
	"github.com/wonny/delaycast/internal/runs"
	"github.com/wonny/delaycast/pkg/config"
	"github.com/wonny/delaycast/pkg/database"
	"github.com/wonny/delaycast/pkg/logger"
)

// dataFlags select and describe the order input of train, evaluate and schedule
type dataFlags struct {
	source    string // csv | postgres
	path      string
	delimiter string
	encoding  string
	table     string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmdFlags := cmd.Flags()
	cmdFlags.StringVar(&f.source, "source", "csv", "order source: csv | postgres")
	cmdFlags.StringVar(&f.path, "data", "", "order file (default ORDERS_PATH)")
	cmdFlags.StringVar(&f.delimiter, "delimiter", "", `field delimiter, e.g. ";" or "tab" (default ORDERS_DELIMITER)`)
	cmdFlags.StringVar(&f.encoding, "encoding", "", "text encoding, IANA name (default ORDERS_ENCODING)")
	cmdFlags.StringVar(&f.table, "table", "", "postgres table (default ORDERS_TABLE)")
}

// loadConfig reads the environment and applies global flag overrides
func loadConfig() (*config.Config, error) {
	if env != "" {
		os.Setenv("ENV", env)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger logs to stderr so stdout stays clean for command output
func newLogger(cfg *config.Config) *logger.Logger {
	return logger.NewWithWriter(cfg, os.Stderr)
}

// openSource builds the order source; the returned closer releases a database pool
func openSource(cfg *config.Config, f dataFlags, log *logger.Logger) (orders.Source, func(), error) {
	switch f.source {
	case "", "csv":
		csvCfg := orders.CSVConfig{
			Path:      cfg.Orders.Path,
			Delimiter: cfg.Orders.Delimiter,
			Encoding:  cfg.Orders.Encoding,
		}
		if f.path != "" {
			csvCfg.Path = f.path
		}
		if f.delimiter != "" {
			d, err := parseDelimiter(f.delimiter)
			if err != nil {
				return nil, nil, err
			}
			csvCfg.Delimiter = d
		}
		if f.encoding != "" {
			csvCfg.Encoding = f.encoding
		}
		return orders.NewCSVSource(csvCfg, log.Zerolog()), func() {}, nil

	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		table := cfg.Orders.Table
		if f.table != "" {
			table = f.table
		}
		return orders.NewPostgresSource(db.Pool, table, log.Zerolog()), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown source %q (want csv or postgres)", f.source)
	}
}

// openRunStore connects the run history when DATABASE_URL is set; nil otherwise
func openRunStore(cfg *config.Config, log *logger.Logger) (runs.Store, func()) {
	if !cfg.Database.Enabled() {
		return nil, func() {}
	}
	db, err := database.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Run history disabled: database unavailable")
		return nil, func() {}
	}
	return runs.NewRepository(db.Pool), db.Close
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}
