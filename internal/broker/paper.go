package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/pkg/logger"
)

// PaperBroker writes the order batch to a dated JSON file instead of
// submitting it anywhere. The file doubles as the manual order sheet.
type PaperBroker struct {
	outDir string
	log    *logger.Logger
}

// NewPaperBroker creates a paper broker writing under outDir.
func NewPaperBroker(outDir string, log *logger.Logger) *PaperBroker {
	return &PaperBroker{
		outDir: outDir,
		log:    log.WithField("component", "broker"),
	}
}

func (b *PaperBroker) Name() string { return "paper" }

// PlaceOrders writes orders_<date>.json and reports the path.
func (b *PaperBroker) PlaceOrders(_ context.Context, date time.Time, orders []contracts.Order) (string, error) {
	if err := os.MkdirAll(b.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create order directory: %w", err)
	}

	payload := struct {
		Date   string            `json:"date"`
		Orders []contracts.Order `json:"orders"`
	}{
		Date:   date.Format("2006-01-02"),
		Orders: orders,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal orders: %w", err)
	}

	path := filepath.Join(b.outDir, fmt.Sprintf("orders_%s.json", payload.Date))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write order file: %w", err)
	}

	b.log.WithField("path", path).Info("Paper orders written")
	return fmt.Sprintf("paper: wrote %s", path), nil
}
