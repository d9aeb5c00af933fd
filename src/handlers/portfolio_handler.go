// backend/src/handlers/portfolio_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/folioboard/backend/src/ledger"
	"github.com/username/folioboard/backend/src/logger"
	"github.com/username/folioboard/backend/src/models"
	"github.com/username/folioboard/backend/src/security/validation"
	"github.com/username/folioboard/backend/src/services"
	"github.com/username/folioboard/backend/src/utils"
)

type PortfolioHandler struct {
	service services.PortfolioService
}

func NewPortfolioHandler(service services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

// statusForError maps the ledger's sentinel errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, validation.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientQuantity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *PortfolioHandler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sortBy := r.URL.Query().Get("sort")
	switch sortBy {
	case "", "value", "performance", "name":
	default:
		utils.SendJSONError(w, fmt.Sprintf("unknown sort option %q", sortBy), http.StatusBadRequest)
		return
	}

	holdings, err := h.service.Holdings(query, sortBy)
	if err != nil {
		utils.SendJSONError(w, "failed to retrieve holdings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

func (h *PortfolioHandler) HandleAddAsset(w http.ResponseWriter, r *http.Request) {
	var req models.AddAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	if err := validateAddAsset(&req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, created, err := h.service.AddAsset(req)
	if err != nil {
		utils.SendJSONError(w, err.Error(), statusForError(err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"holding": view, "created": created})
}

func validateAddAsset(req *models.AddAssetRequest) error {
	if err := validation.ValidateSymbol(req.Symbol); err != nil {
		return err
	}
	req.Name = validation.SanitizeText(validation.StripUnprintable(req.Name))
	if err := validation.ValidateStringNotEmpty(req.Name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Name, validation.MaxNameLength, "name"); err != nil {
		return err
	}
	if err := validation.ValidatePositiveAmount(req.Quantity, validation.MaxQuantity, "quantity"); err != nil {
		return err
	}
	if err := validation.ValidatePositiveAmount(req.BuyPrice, validation.MaxPrice, "buyPrice"); err != nil {
		return err
	}
	if _, err := validation.ValidateDateString(req.BuyDate, "buyDate"); err != nil {
		return err
	}
	req.Type = validation.SanitizeText(req.Type)
	return nil
}

func (h *PortfolioHandler) HandleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}
	if err := h.service.RemoveAsset(id); err != nil {
		utils.SendJSONError(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "asset removed"})
}

func (h *PortfolioHandler) HandleAddTrade(w http.ResponseWriter, r *http.Request) {
	var req models.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	if err := validateTradeRequest(&req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	trade, err := h.service.ExecuteTrade(req)
	if err != nil {
		logger.FromContext(r.Context()).Warn("trade rejected", "symbol", req.Symbol, "error", err)
		utils.SendJSONError(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func validateTradeRequest(req *models.TradeRequest) error {
	tradeType := strings.ToLower(strings.TrimSpace(req.TradeType))
	if tradeType != string(ledger.Buy) && tradeType != string(ledger.Sell) {
		return fmt.Errorf("%w: tradeType must be %q or %q", validation.ErrValidationFailed, ledger.Buy, ledger.Sell)
	}
	req.TradeType = tradeType
	if req.PositionID == 0 {
		if err := validation.ValidateSymbol(req.Symbol); err != nil {
			return err
		}
	}
	if err := validation.ValidatePositiveAmount(req.Quantity, validation.MaxQuantity, "quantity"); err != nil {
		return err
	}
	if err := validation.ValidatePositiveAmount(req.Price, validation.MaxPrice, "price"); err != nil {
		return err
	}
	req.Notes = validation.SanitizeText(validation.StripUnprintable(req.Notes))
	return validation.ValidateStringMaxLength(req.Notes, validation.MaxNotesLength, "notes")
}

// HandleGetTradeData returns the compact holding list the trade form needs:
// what can be traded and at what last price.
func (h *PortfolioHandler) HandleGetTradeData(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.service.Holdings("", "name")
	if err != nil {
		utils.SendJSONError(w, "failed to retrieve holdings", http.StatusInternalServerError)
		return
	}
	type tradeOption struct {
		ID           int64   `json:"id"`
		Symbol       string  `json:"symbol"`
		Name         string  `json:"name"`
		Quantity     float64 `json:"quantity"`
		CurrentPrice float64 `json:"currentPrice"`
	}
	options := make([]tradeOption, 0, len(holdings))
	for _, hv := range holdings {
		options = append(options, tradeOption{
			ID: hv.ID, Symbol: hv.Symbol, Name: hv.Name,
			Quantity: hv.Quantity, CurrentPrice: hv.CurrentPrice,
		})
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *PortfolioHandler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.service.Trades(r.URL.Query().Get("symbol"))
	if err != nil {
		utils.SendJSONError(w, "failed to retrieve trade history", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.TradeView{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *PortfolioHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics()
	if err != nil {
		utils.SendJSONError(w, "failed to compute portfolio metrics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *PortfolioHandler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	days := 0
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 0 {
			utils.SendJSONError(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	points, err := h.service.PerformanceHistory(days)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to load performance history", "error", err)
		utils.SendJSONError(w, "failed to retrieve performance history", http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []models.PerformancePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *PortfolioHandler) HandleGetInvestments(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.Allocation()
	if err != nil {
		utils.SendJSONError(w, "failed to compute allocation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, slices)
}

func (h *PortfolioHandler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := validation.ValidateSymbol(symbol); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	quote, err := h.service.Quote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, services.ErrQuoteUnavailable) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Warn("quote fetch failed", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "quote fetch failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
