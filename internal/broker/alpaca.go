package broker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/pkg/httputil"
	"github.com/minghuang/etfdca/pkg/logger"
)

const (
	alpacaLiveURL  = "https://api.alpaca.markets"
	alpacaPaperURL = "https://paper-api.alpaca.markets"
)

// AlpacaBroker submits market day orders through the Alpaca trading API.
type AlpacaBroker struct {
	client  *httputil.Client
	baseURL string
	log     *logger.Logger
}

// NewAlpacaBroker creates an Alpaca broker. With paper true it talks to the
// paper-trading endpoint.
func NewAlpacaBroker(client *httputil.Client, apiKey, apiSecret string, paper bool, log *logger.Logger) *AlpacaBroker {
	baseURL := alpacaLiveURL
	if paper {
		baseURL = alpacaPaperURL
	}
	return &AlpacaBroker{
		client: client.
			WithHeader("APCA-API-KEY-ID", apiKey).
			WithHeader("APCA-API-SECRET-KEY", apiSecret),
		baseURL: baseURL,
		log:     log.WithField("component", "broker"),
	}
}

func (b *AlpacaBroker) Name() string { return "alpaca" }

// WithBaseURL overrides the API endpoint. Used in tests.
func (b *AlpacaBroker) WithBaseURL(base string) *AlpacaBroker {
	b.baseURL = base
	return b
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

// PlaceOrders submits every buy line as a market day order. The first
// rejected order aborts the batch.
func (b *AlpacaBroker) PlaceOrders(ctx context.Context, date time.Time, orders []contracts.Order) (string, error) {
	placed := 0
	for _, o := range orders {
		if o.Side != contracts.OrderSideBuy || o.Shares <= 0 {
			continue
		}
		req := alpacaOrderRequest{
			Symbol:      o.Ticker,
			Qty:         strconv.FormatFloat(o.Shares, 'f', -1, 64),
			Side:        "buy",
			Type:        "market",
			TimeInForce: "day",
		}
		resp, err := b.client.PostJSON(ctx, b.baseURL+"/v2/orders", req)
		if err != nil {
			return "", fmt.Errorf("alpaca order for %s: %w", o.Ticker, err)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("alpaca rejected %s order: status %d: %s", o.Ticker, resp.StatusCode, string(body))
		}
		placed++

		b.log.WithFields(map[string]interface{}{
			"ticker": o.Ticker,
			"shares": o.Shares,
			"date":   date.Format("2006-01-02"),
		}).Info("Alpaca order submitted")
	}
	return fmt.Sprintf("alpaca: submitted %d buy orders", placed), nil
}
