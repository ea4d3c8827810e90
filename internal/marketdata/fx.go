package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/pkg/httputil"
	"github.com/minghuang/etfdca/pkg/logger"
)

const defaultFXScrapeURL = "https://www.x-rates.com/calculator/?from=USD&to=CNY&amount=1"

// FXProvider resolves the USD/CNY rate for a run. In fixed mode it returns
// the configured rate. In auto mode it tries the Yahoo FX symbol first, then
// an HTML rate table, and finally the configured fallback value.
type FXProvider struct {
	yahoo     *YahooClient
	client    *httputil.Client
	cfg       *strategyconfig.Config
	scrapeURL string
	log       *logger.Logger
}

// NewFXProvider creates an FX provider.
func NewFXProvider(yahoo *YahooClient, client *httputil.Client, cfg *strategyconfig.Config, log *logger.Logger) *FXProvider {
	return &FXProvider{
		yahoo:     yahoo,
		client:    client,
		cfg:       cfg,
		scrapeURL: defaultFXScrapeURL,
		log:       log.WithField("component", "fx"),
	}
}

// WithScrapeURL overrides the HTML fallback source. Used in tests.
func (p *FXProvider) WithScrapeURL(u string) *FXProvider {
	p.scrapeURL = u
	return p
}

// Rate returns the USD/CNY rate to use and whether a fallback was taken
// instead of a live value.
func (p *FXProvider) Rate(ctx context.Context) (float64, bool) {
	params := p.cfg.Params
	if strings.ToLower(params.FXMode) != "auto" {
		return params.FXUsdCny, false
	}

	if rate, err := p.yahoo.LatestClose(ctx, params.FXSymbol); err == nil && rate > 0 {
		return rate, false
	} else if err != nil {
		p.log.WithError(err).Warn("Yahoo FX fetch failed, trying HTML source")
	}

	if rate, err := p.scrapeRate(ctx); err == nil && rate > 0 {
		return rate, false
	} else if err != nil {
		p.log.WithError(err).Warn("HTML FX fetch failed, using configured fallback")
	}

	fallback := params.FXFallbackUsdCny
	if fallback <= 0 {
		fallback = params.FXUsdCny
	}
	return fallback, true
}

// scrapeRate pulls the rate out of a converter page. The result element
// reads like "7.1325 CNY"; everything after the number is dropped.
func (p *FXProvider) scrapeRate(ctx context.Context) (float64, error) {
	resp, err := p.client.Get(ctx, p.scrapeURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse FX page: %w", err)
	}

	text := strings.TrimSpace(doc.Find(".ccOutputRslt").First().Text())
	if text == "" {
		return 0, fmt.Errorf("FX page has no rate element")
	}
	fields := strings.Fields(text)
	rate, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable FX rate %q: %w", text, err)
	}
	return rate, nil
}
