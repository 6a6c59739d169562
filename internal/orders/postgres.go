package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/contracts"
)

// PostgresSource reads orders from a table shaped like sql/postgres/001_orders.sql
type PostgresSource struct {
	pool    *pgxpool.Pool
	table   string
	layouts []string
	log     zerolog.Logger
}

// NewPostgresSource creates a Postgres order source
func NewPostgresSource(pool *pgxpool.Pool, table string, log zerolog.Logger) *PostgresSource {
	if table == "" {
		table = "orders"
	}
	return &PostgresSource{
		pool:    pool,
		table:   table,
		layouts: DefaultDateLayouts,
		log:     log.With().Str("component", "orders.postgres").Logger(),
	}
}

// Name identifies the source in logs and run history
func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

// Load reads every row ordered by id. NULL cells go through the same imputation as CSV blanks.
func (s *PostgresSource) Load(ctx context.Context) ([]contracts.Order, *contracts.DataQualitySnapshot, error) {
	columns := contracts.RequiredRawColumns()

	query := fmt.Sprintf(`
		SELECT customer_id::text, price::text, quantity::text, category::text,
			   customer_segment::text, channel::text, device_type::text,
			   order_date::text, shipping_date::text
		FROM %s
		ORDER BY id`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	scanOrder := []string{
		contracts.ColCustomerID, contracts.ColPrice, contracts.ColQuantity, contracts.ColCategory,
		contracts.ColCustomerSegment, contracts.ColChannel, contracts.ColDeviceType,
		contracts.ColOrderDate, contracts.ColShippingDate,
	}

	raw := newRawTable()
	cells := make([]*string, len(scanOrder))
	dest := make([]any, len(scanOrder))
	for i := range cells {
		dest[i] = &cells[i]
	}
	values := make(map[string]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan order: %w", err)
		}
		for i, col := range scanOrder {
			values[col] = ""
			if cells[i] != nil {
				values[col] = *cells[i]
			}
		}
		raw.appendRow(values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate orders: %w", err)
	}

	orders, snapshot, err := raw.toOrders(s.Name(), s.layouts)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Int("rows", snapshot.TotalRows).
		Int("imputed", snapshot.TotalImputed()).
		Msg("orders loaded")

	return orders, snapshot, nil
}

// Insert writes orders into the table. Used to seed the table from a CSV export.
func (s *PostgresSource) Insert(ctx context.Context, orders []contracts.Order) error {
	if len(orders) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(customer_id, price, quantity, category, customer_segment, channel, device_type, order_date, shipping_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, pgx.Identifier{s.table}.Sanitize())

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(query, o.CustomerID, o.Price, int(o.Quantity), o.Category,
			o.CustomerSegment, o.Channel, o.DeviceType, o.OrderDate, o.ShippingDate)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range orders {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
	}

	return nil
}
