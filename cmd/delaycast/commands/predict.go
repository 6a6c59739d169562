package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/client"
	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/serving"
	"github.com/wonny/delaycast/pkg/httputil"
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "단건 배송 지연 예측",
	Long: `Predicts one order, either with a local artifact or against a running
server (--remote). The order comes from flags or from a JSON document
(--json, "-" reads stdin) with the same fields as POST /predict.

Example:
  go run ./cmd/delaycast predict --price 29.99 --quantity 2 --category Electronics \
      --segment Consumer --channel web --device mobile --dow 2 --month 11 --risk 0.3
  go run ./cmd/delaycast predict --json order.json --remote http://localhost:8000
  echo '{"price": 10, ...}' | go run ./cmd/delaycast predict --json -`,
	RunE: runPredict,
}

var (
	predictModel  string
	predictRemote string
	predictJSON   string

	predictPrice      float64
	predictQuantity   int
	predictCategory   string
	predictSegment    string
	predictChannel    string
	predictDevice     string
	predictDayOfWeek  int
	predictMonth      int
	predictRisk       float64
	predictOrderValue float64
	predictCustomer   string
)

func init() {
	rootCmd.AddCommand(predictCmd)

	f := predictCmd.Flags()
	f.StringVar(&predictModel, "model", "", "artifact path (default MODEL_PATH, else the search list)")
	f.StringVar(&predictRemote, "remote", "", "server base URL; predicts over HTTP instead of loading the artifact")
	f.StringVar(&predictJSON, "json", "", `request JSON file, "-" for stdin`)

	f.Float64Var(&predictPrice, "price", 0, "unit price")
	f.IntVar(&predictQuantity, "quantity", 0, "quantity")
	f.StringVar(&predictCategory, "category", "", "product category")
	f.StringVar(&predictSegment, "segment", "", "customer segment")
	f.StringVar(&predictChannel, "channel", "", "sales channel")
	f.StringVar(&predictDevice, "device", "", "device type")
	f.IntVar(&predictDayOfWeek, "dow", 0, "order day of week, 0 = Monday")
	f.IntVar(&predictMonth, "month", 0, "order month, 1-12")
	f.Float64Var(&predictRisk, "risk", 0, "customer risk score in [0,1]")
	f.Float64Var(&predictOrderValue, "order-value", 0, "order value (default price * quantity)")
	f.StringVar(&predictCustomer, "customer", "", "customer id, used for the risk score when --risk is absent")
}

func runPredict(cmd *cobra.Command, args []string) error {
	req, err := predictRequest(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	ctx := cmd.Context()

	var resp contracts.PredictionResponse
	if predictRemote != "" {
		hc := httputil.New(log, httputil.WithTimeout(10*time.Second), httputil.WithRetry(2, 200*time.Millisecond))
		resp, err = client.New(predictRemote, hc).Predict(ctx, req)
	} else {
		if predictModel != "" {
			cfg.Model.Path = predictModel
		}
		var path string
		path, err = artifact.ResolvePath(cfg.ModelSearchPaths())
		if err != nil {
			return err
		}
		var m *artifact.Model
		if m, err = artifact.Load(path); err != nil {
			return err
		}
		svc := serving.NewService(nil, 0, nil, log.Zerolog())
		svc.Swap(m)
		resp, err = svc.Predict(ctx, req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// predictRequest builds the request from --json or from the flags that were set
func predictRequest(cmd *cobra.Command) (contracts.PredictionRequest, error) {
	var req contracts.PredictionRequest

	if predictJSON != "" {
		var r io.Reader = cmd.InOrStdin()
		if predictJSON != "-" {
			f, err := os.Open(predictJSON)
			if err != nil {
				return req, err
			}
			defer f.Close()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&req); err != nil {
			return req, fmt.Errorf("decode request JSON: %w", err)
		}
		return req, nil
	}

	set := cmd.Flags().Changed
	if set("price") {
		req.Price = &predictPrice
	}
	if set("quantity") {
		req.Quantity = wholeFlag(predictQuantity)
	}
	if set("category") {
		req.Category = &predictCategory
	}
	if set("segment") {
		req.CustomerSegment = &predictSegment
	}
	if set("channel") {
		req.Channel = &predictChannel
	}
	if set("device") {
		req.DeviceType = &predictDevice
	}
	if set("dow") {
		req.OrderDayOfWeek = wholeFlag(predictDayOfWeek)
	}
	if set("month") {
		req.OrderMonth = wholeFlag(predictMonth)
	}
	if set("risk") {
		req.CustomerRiskScore = &predictRisk
	}
	if set("order-value") {
		req.OrderValue = &predictOrderValue
	}
	if set("customer") {
		req.CustomerID = &predictCustomer
	}
	return req, nil
}

func wholeFlag(v int) *float64 {
	f := float64(v)
	return &f
}
