package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// TradeService defines the methods that the trade handler requires from the
// service layer.
type TradeService interface {
	CreateTrade(ctx context.Context, req domain.TradeRequest) (domain.Trade, error)
	ListLive(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error)
	ListCompletedLog(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error)
}

// TradeHandler serves the trade HTTP endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// placeTradeResponse wraps the creation response.
type placeTradeResponse struct {
	Message string       `json:"message"`
	Trade   domain.Trade `json:"trade"`
}

// listLiveResponse wraps the live trades listing.
type listLiveResponse struct {
	Trades []domain.Trade `json:"trades"`
}

// listLogsResponse wraps the completed trades listing.
type listLogsResponse struct {
	Data []domain.Trade `json:"data"`
}

// PlaceTrade opens a new position.
// POST /trades/new
func (h *TradeHandler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req domain.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	trade, err := h.trades.CreateTrade(r.Context(), req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "Invalid trade request", verr.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: place trade failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to place trade", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, placeTradeResponse{
		Message: "Trade placed successfully",
		Trade:   trade,
	})
}

// ListLive returns all currently live trades, newest first. No live trades is
// a normal empty listing, not an error.
// GET /trades/live
func (h *TradeHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.ListLive(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list live trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch live trades", err.Error())
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, listLiveResponse{Trades: trades})
}

// ListLogs returns all completed trades, newest first.
// GET /trades/logs
func (h *TradeHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.ListCompletedLog(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trade logs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch trade logs", err.Error())
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, listLogsResponse{Data: trades})
}
