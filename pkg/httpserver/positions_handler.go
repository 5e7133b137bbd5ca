package httpserver

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// BookReader is the read side of the paper broker.
type BookReader interface {
	Cash() float64
	Positions() types.Positions
	Trades() []types.Trade
}

// PositionsHandler serves the current paper book over HTTP.
type PositionsHandler struct {
	book   BookReader
	logger *zap.Logger
}

// NewPositionsHandler creates the paper-book handler.
func NewPositionsHandler(book BookReader, logger *zap.Logger) *PositionsHandler {
	return &PositionsHandler{book: book, logger: logger}
}

// PositionEntry is one holding in the response.
type PositionEntry struct {
	MarketID  string  `json:"market_id"`
	OutcomeID string  `json:"outcome_id"`
	Quantity  float64 `json:"quantity"`
}

// PositionsResponse is the paper-book snapshot.
type PositionsResponse struct {
	Cash       float64         `json:"cash"`
	Positions  []PositionEntry `json:"positions"`
	TradeCount int             `json:"trade_count"`
}

// ErrorResponse is the JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandlePositions handles GET /api/positions requests.
func (h *PositionsHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	positions := h.book.Positions()
	entries := make([]PositionEntry, 0, len(positions))
	for key, qty := range positions {
		entries = append(entries, PositionEntry{
			MarketID:  key.MarketID,
			OutcomeID: key.OutcomeID,
			Quantity:  qty,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].MarketID != entries[j].MarketID {
			return entries[i].MarketID < entries[j].MarketID
		}
		return entries[i].OutcomeID < entries[j].OutcomeID
	})

	response := PositionsResponse{
		Cash:       h.book.Cash(),
		Positions:  entries,
		TradeCount: len(h.book.Trades()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *PositionsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
