package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/holdings"
	"github.com/minghuang/etfdca/internal/tradelog"
	"github.com/minghuang/etfdca/pkg/logger"
)

// JobRunner triggers a scheduled job outside its schedule.
type JobRunner interface {
	RunNow(name string) error
}

// StatusHandler serves the read-only state of the system: the reserve
// balance, the trade log, current holdings, and persisted run summaries.
type StatusHandler struct {
	store      tradelog.Store
	dataDir    string
	configHash string
	strategy   interface{}
	jobs       JobRunner
	logger     *logger.Logger
}

func NewStatusHandler(store tradelog.Store, dataDir, configHash string, strategy interface{}, jobs JobRunner, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		store:      store,
		dataDir:    dataDir,
		configHash: configHash,
		strategy:   strategy,
		jobs:       jobs,
		logger:     log,
	}
}

// GetReserve returns the reserve balance folded from the trade log.
// GET /api/reserve
func (h *StatusHandler) GetReserve(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load trade log")
		respondError(w, http.StatusInternalServerError, "Failed to load trade log")
		return
	}

	resp := map[string]interface{}{
		"reserve_balance_cny": contracts.ReserveBalance(entries),
		"entries":             len(entries),
	}
	if n := len(entries); n > 0 {
		last := entries[n-1]
		resp["last_trade_date"] = last.Date.Format("2006-01-02")
		resp["last_trigger"] = last.Trigger
		resp["cash_pool_cny"] = last.CashPoolCNY
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetLog returns trade log entries, optionally filtered to one month.
// GET /api/log?month=2026-08
func (h *StatusHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load trade log")
		respondError(w, http.StatusInternalServerError, "Failed to load trade log")
		return
	}

	if month := r.URL.Query().Get("month"); month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			respondError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		filtered := make([]contracts.TradeLogEntry, 0, len(entries))
		for _, e := range entries {
			if e.MonthKey == month {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetHoldings returns the current share counts.
// GET /api/holdings
func (h *StatusHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	hold, err := holdings.Load(filepath.Join(h.dataDir, "holdings.csv"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load holdings")
		respondError(w, http.StatusInternalServerError, "Failed to load holdings")
		return
	}
	respondJSON(w, http.StatusOK, hold)
}

// GetSummary returns the persisted summary of one daily run.
// GET /api/summary/{date}
func (h *StatusHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	raw, err := os.ReadFile(filepath.Join(h.dataDir, "summary_"+date+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "No summary for "+date)
			return
		}
		h.logger.WithError(err).Error("Failed to read summary")
		respondError(w, http.StatusInternalServerError, "Failed to read summary")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// GetStrategy returns the active strategy parameters and their hash.
// GET /api/strategy
func (h *StatusHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_hash": h.configHash,
		"strategy":    h.strategy,
	})
}

// RunNow triggers the daily job immediately.
// POST /api/run
func (h *StatusHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler not running")
		return
	}
	if err := h.jobs.RunNow("daily_signal"); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"job":    "daily_signal",
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
