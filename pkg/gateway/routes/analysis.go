package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/meditrack-ai/platform/pkg/analysis"
	"github.com/meditrack-ai/platform/pkg/clinical"
	"github.com/meditrack-ai/platform/pkg/common/logger"
	"github.com/meditrack-ai/platform/pkg/export"
)

type AnalysisHandler struct {
	service *analysis.Service
}

func NewAnalysisHandler(service *analysis.Service) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

func (h *AnalysisHandler) Register(r *mux.Router) {
	r.HandleFunc("/ai-analysis/generate", h.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/ai-analysis/{reportID}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/ai-analysis/{reportID}/export/pdf", h.handleExportPDF).Methods(http.MethodGet)
}

type generateRequest struct {
	PatientID string             `json:"patient_id"`
	DateRange analysis.DateRange `json:"date_range"`
	Options   analysis.Options   `json:"options"`
}

func (h *AnalysisHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid analysis request", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" {
		http.Error(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	report, err := h.service.GenerateReport(r.Context(), req.PatientID, req.DateRange, req.Options)
	if err != nil {
		if errors.Is(err, clinical.ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to generate analysis report")
		http.Error(w, "failed to generate analysis report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, report)
}

func (h *AnalysisHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["reportID"]

	report, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, analysis.ErrReportNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load analysis report")
		http.Error(w, "failed to load analysis report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, report)
}

func (h *AnalysisHandler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["reportID"]

	report, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, analysis.ErrReportNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load analysis report")
		http.Error(w, "failed to load analysis report", http.StatusInternalServerError)
		return
	}

	pdf := export.RenderPDF(report)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=analysis_%s.pdf", reportID))
	w.Write(pdf)
}
