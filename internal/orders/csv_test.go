package orders

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/wonny/delaycast/internal/contracts"
)

const header = "customer_id,price,quantity,category,customer_segment,channel,device_type,order_date,shipping_date\n"

func newTestSource(cfg CSVConfig) *CSVSource {
	return NewCSVSource(cfg, zerolog.Nop())
}

func TestCSVSource_Read(t *testing.T) {
	data := header +
		"C001,29.99,2,Electronics,Consumer,web,mobile,2024-03-04,2024-03-08\n" +
		"C002,10.50,1,Books,Corporate,app,desktop,2024-03-05,2024-03-12\n"

	orders, snapshot, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "C001", first.CustomerID)
	assert.Equal(t, 29.99, first.Price)
	assert.Equal(t, 2.0, first.Quantity)
	assert.Equal(t, "Electronics", first.Category)
	assert.Equal(t, "Consumer", first.CustomerSegment)
	assert.Equal(t, "web", first.Channel)
	assert.Equal(t, "mobile", first.DeviceType)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), first.OrderDate)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), first.ShippingDate)

	assert.Equal(t, 2, snapshot.TotalRows)
	assert.Equal(t, 0, snapshot.TotalImputed())
	assert.InDelta(t, 1.0, snapshot.CoverageRate(), 1e-9)
	assert.Equal(t, "csv:", snapshot.Source)
}

func TestCSVSource_ExtraColumnsAndOrder(t *testing.T) {
	data := "order_id,shipping_date,order_date,device_type,channel,customer_segment,category,quantity,price,customer_id\n" +
		"1,2024-03-08,2024-03-04,mobile,web,Consumer,Electronics,2,29.99,C001\n"

	orders, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "C001", orders[0].CustomerID)
	assert.Equal(t, 29.99, orders[0].Price)
}

func TestCSVSource_Imputation(t *testing.T) {
	data := header +
		"C001,10,1,Books,Consumer,web,mobile,2024-03-04,2024-03-08\n" +
		"C002,,3,,Consumer,web,,2024-03-04,2024-03-08\n" +
		"C003,30,NaN,Books,Corporate,app,desktop,2024-03-04,\n" +
		"C001,20,2,Home,Corporate,app,desktop,2024-03-05,2024-03-09\n"

	orders, snapshot, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, orders, 4)

	// price median of {10, 30, 20}
	assert.Equal(t, 20.0, orders[1].Price)
	// quantity median of {1, 3, 2}
	assert.Equal(t, 2.0, orders[2].Quantity)
	// category mode is Books
	assert.Equal(t, "Books", orders[1].Category)
	// device_type mode is desktop
	assert.Equal(t, "desktop", orders[1].DeviceType)
	// shipping_date mode is 2024-03-08
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), orders[2].ShippingDate)

	assert.Equal(t, 1, snapshot.Imputed[contracts.ColPrice])
	assert.Equal(t, 1, snapshot.Imputed[contracts.ColQuantity])
	assert.Equal(t, 5, snapshot.TotalImputed())
	assert.InDelta(t, 0.75, snapshot.Coverage[contracts.ColPrice], 1e-9)
}

func TestCSVSource_MissingColumn(t *testing.T) {
	data := "customer_id,price,quantity,category,customer_segment,channel,order_date,shipping_date\n" +
		"C001,10,1,Books,Consumer,web,2024-03-04,2024-03-08\n"

	_, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)

	var de *contracts.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, contracts.ColDeviceType, de.Column)
}

func TestCSVSource_Unparseable(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
	}{
		{"bad price", "C001,abc,1,Books,Consumer,web,mobile,2024-03-04,2024-03-08", contracts.ColPrice},
		{"bad order date", "C001,10,1,Books,Consumer,web,mobile,04.03.2024,2024-03-08", contracts.ColOrderDate},
		{"bad shipping date", "C001,10,1,Books,Consumer,web,mobile,2024-03-04,tomorrow", contracts.ColShippingDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(header+tt.row+"\n"))
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrUnparseableValue)

			var de *contracts.DataError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.column, de.Column)
			assert.Equal(t, 1, de.Row)
		})
	}
}

func TestCSVSource_EmptyColumn(t *testing.T) {
	data := header + "C001,,1,Books,Consumer,web,mobile,2024-03-04,2024-03-08\n"

	_, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.Error(t, err)
	assert.True(t, contracts.IsDataError(err))
}

func TestCSVSource_Empty(t *testing.T) {
	_, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, contracts.ErrEmptyDataset)

	_, _, err = newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(header))
	assert.ErrorIs(t, err, contracts.ErrEmptyDataset)
}

func TestCSVSource_DelimiterAndEncoding(t *testing.T) {
	row := "C001;29.99;2;Électronique;Consumer;web;mobile;2024-03-04;2024-03-08\n"
	text := strings.ReplaceAll(header, ",", ";") + row

	latin1, err := charmap.ISO8859_1.NewEncoder().String(text)
	require.NoError(t, err)

	src := newTestSource(CSVConfig{Delimiter: ';', Encoding: "iso-8859-1"})
	orders, _, err := src.Read(context.Background(), bytes.NewReader([]byte(latin1)))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Électronique", orders[0].Category)
}

func TestCSVSource_UTF8BOM(t *testing.T) {
	data := "\ufeff" + header + "C001,29.99,2,Books,Consumer,web,mobile,2024-03-04,2024-03-08\n"

	orders, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "C001", orders[0].CustomerID)
}

func TestCSVSource_UnknownEncoding(t *testing.T) {
	src := newTestSource(CSVConfig{Encoding: "klingon-8"})
	_, _, err := src.Read(context.Background(), strings.NewReader(header))
	require.Error(t, err)
	assert.True(t, contracts.IsDataError(err))
}

func TestCSVSource_DateLayouts(t *testing.T) {
	data := header +
		"C001,10,1,Books,Consumer,web,mobile,2024-03-04 10:30:00,03/09/2024\n" +
		"C002,10,1,Books,Consumer,web,mobile,2024-03-04T23:00:00Z,2024-03-10\n"

	orders, _, err := newTestSource(CSVConfig{}).Read(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC), orders[0].OrderDate)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), orders[0].ShippingDate)
	assert.Equal(t, time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC), orders[1].OrderDate)
}

func TestCSVSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	data := header + "C001,29.99,2,Books,Consumer,web,mobile,2024-03-04,2024-03-08\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	src := newTestSource(CSVConfig{Path: path})
	orders, snapshot, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, "csv:"+path, snapshot.Source)

	_, _, err = newTestSource(CSVConfig{Path: filepath.Join(t.TempDir(), "missing.csv")}).Load(context.Background())
	assert.True(t, contracts.IsDataError(err))
}
