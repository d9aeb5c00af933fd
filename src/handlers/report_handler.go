// backend/src/handlers/report_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/username/folioboard/backend/src/logger"
	"github.com/username/folioboard/backend/src/models"
	"github.com/username/folioboard/backend/src/security/validation"
	"github.com/username/folioboard/backend/src/services"
	"github.com/username/folioboard/backend/src/utils"
)

// ReportHandler serves the derived views that leave the dashboard: tax
// estimates, backups and the manual price refresh.
type ReportHandler struct {
	service        services.PortfolioService
	maxImportBytes int64
}

func NewReportHandler(service services.PortfolioService, maxImportBytes int64) *ReportHandler {
	return &ReportHandler{service: service, maxImportBytes: maxImportBytes}
}

func (h *ReportHandler) HandleTaxEstimate(w http.ResponseWriter, r *http.Request) {
	bracket := r.URL.Query().Get("bracket")
	if err := validation.ValidateIncomeBracket(bracket); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	asOf := time.Now()
	if asOfStr := r.URL.Query().Get("asOf"); asOfStr != "" {
		parsed, err := validation.ValidateDateString(asOfStr, "asOf")
		if err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	report, err := h.service.TaxEstimate(asOf, bracket)
	if err != nil {
		utils.SendJSONError(w, "failed to compute tax estimate", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	env, err := h.service.Export()
	if err != nil {
		utils.SendJSONError(w, "failed to export portfolio", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("portfolio-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, env)
}

func (h *ReportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportBytes)

	var env models.ExportEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			utils.SendJSONError(w, "import file too large", http.StatusRequestEntityTooLarge)
			return
		}
		utils.SendJSONError(w, "invalid import payload", http.StatusBadRequest)
		return
	}

	if err := h.service.Import(env); err != nil {
		utils.SendJSONError(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "portfolio imported",
		"positions": len(env.Assets),
		"trades":    len(env.Trades),
	})
}

func (h *ReportHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.RefreshPrices(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Warn("manual price refresh failed", "error", err)
		utils.SendJSONError(w, "price refresh failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
