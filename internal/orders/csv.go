package orders

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/wonny/delaycast/internal/contracts"
)

// CSVConfig describes a delimited order export
type CSVConfig struct {
	Path        string
	Delimiter   rune   // ',' when zero
	Encoding    string // IANA name, utf-8 when empty
	DateLayouts []string
}

// CSVSource reads orders from a delimited text file
type CSVSource struct {
	cfg CSVConfig
	log zerolog.Logger
}

// NewCSVSource creates a CSV order source
func NewCSVSource(cfg CSVConfig, log zerolog.Logger) *CSVSource {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "utf-8"
	}
	return &CSVSource{
		cfg: cfg,
		log: log.With().Str("component", "orders.csv").Logger(),
	}
}

// Name identifies the source in logs and run history
func (s *CSVSource) Name() string {
	return "csv:" + s.cfg.Path
}

// Load opens the configured file and reads it
func (s *CSVSource) Load(ctx context.Context) ([]contracts.Order, *contracts.DataQualitySnapshot, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, nil, &contracts.DataError{Op: "load", Err: fmt.Errorf("open %s: %w", s.cfg.Path, err)}
	}
	defer f.Close()

	return s.Read(ctx, f)
}

// Read parses an order export from r
func (s *CSVSource) Read(ctx context.Context, r io.Reader) ([]contracts.Order, *contracts.DataQualitySnapshot, error) {
	decoded, err := decodingReader(r, s.cfg.Encoding)
	if err != nil {
		return nil, nil, &contracts.DataError{Op: "load", Err: err}
	}

	reader := csv.NewReader(decoded)
	reader.Comma = s.cfg.Delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &contracts.DataError{Op: "load", Err: contracts.ErrEmptyDataset}
		}
		return nil, nil, &contracts.DataError{Op: "load", Err: fmt.Errorf("read header: %w", err)}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range contracts.RequiredRawColumns() {
		if _, ok := index[col]; !ok {
			return nil, nil, &contracts.DataError{Op: "load", Column: col, Err: contracts.ErrMissingColumn}
		}
	}

	raw := newRawTable()
	values := make(map[string]string, len(raw.cells))
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, nil, &contracts.DataError{Op: "load", Row: row, Err: err}
		}
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		for col := range raw.cells {
			values[col] = ""
			if i := index[col]; i < len(record) {
				values[col] = record[i]
			}
		}
		raw.appendRow(values)
	}

	orders, snapshot, err := raw.toOrders(s.Name(), s.cfg.DateLayouts)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Int("rows", snapshot.TotalRows).
		Int("imputed", snapshot.TotalImputed()).
		Str("encoding", s.cfg.Encoding).
		Msg("orders loaded")

	return orders, snapshot, nil
}

// decodingReader converts r from the named IANA encoding to UTF-8.
// A leading byte order mark selects the matching Unicode decoding.
func decodingReader(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if !strings.EqualFold(name, "utf-8") && !strings.EqualFold(name, "utf8") {
		found, err := ianaindex.IANA.Encoding(name)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
		}
		if found == nil {
			return nil, fmt.Errorf("unsupported encoding %q", name)
		}
		enc = found
	}

	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
