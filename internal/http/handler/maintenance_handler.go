package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaintenanceHandler handles HTTP requests for maintenance requests
type MaintenanceHandler struct {
	maintenanceService *service.MaintenanceService
	maxUploadMB        int64
	logger             *zap.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler instance
func NewMaintenanceHandler(maintenanceService *service.MaintenanceService, maxUploadMB int64, logger *zap.Logger) *MaintenanceHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		maxUploadMB:        maxUploadMB,
		logger:             logger,
	}
}

// List godoc
// @Summary List maintenance requests
// @Description Paginated requests visible to the caller
// @Tags Maintenance
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status"
// @Param assigned query string false "me or unassigned"
// @Param priority query string false "low, medium or high"
// @Param propertyId query string false "Filter by property"
// @Param sortBy query string false "createdAt, updatedAt, priority, status"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.MaintenanceRequestDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance [get]
func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.maintenanceService.List(r.Context(), service.MaintenanceListParams{
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "pageSize"),
		Status:    q.Get("status"),
		Assigned:  q.Get("assigned"),
		Priority:  q.Get("priority"),
		Property:  q.Get("propertyId"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list maintenance requests")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary File a maintenance request
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param request body domain.CreateMaintenanceRequest true "Maintenance request"
// @Success 201 {object} domain.MaintenanceRequestDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance [post]
func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMaintenanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.maintenanceService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create maintenance request")
		return
	}
	w.Header().Set("Location", "/api/v1/maintenance/"+result.ID)
	respondJSON(w, http.StatusCreated, result)
}

// Search godoc
// @Summary Search maintenance requests
// @Tags Maintenance
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {array} domain.MaintenanceRequestDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/search [get]
func (h *MaintenanceHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.maintenanceService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to search maintenance requests")
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// GetByID godoc
// @Summary Get a maintenance request
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} domain.MaintenanceRequestDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id} [get]
func (h *MaintenanceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	result, err := h.maintenanceService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get maintenance request")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SelfAssign godoc
// @Summary Claim an unassigned request
// @Description Staff only. Fails with 409 when another staff member claimed it first.
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} domain.MaintenanceRequestDTO
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /maintenance/{id}/assign [post]
func (h *MaintenanceHandler) SelfAssign(w http.ResponseWriter, r *http.Request) {
	result, err := h.maintenanceService.SelfAssign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to assign maintenance request")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// UpdateStatus godoc
// @Summary Change request status
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body domain.UpdateStatusRequest true "New status"
// @Success 200 {object} domain.MaintenanceRequestDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id}/status [put]
func (h *MaintenanceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.maintenanceService.UpdateStatus(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update maintenance status")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SubmitEstimate godoc
// @Summary Submit a cost estimate
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body domain.SubmitEstimateRequest true "Cost breakdown"
// @Success 200 {object} domain.MaintenanceRequestDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id}/estimate [post]
func (h *MaintenanceHandler) SubmitEstimate(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitEstimateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.maintenanceService.SubmitEstimate(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to submit estimate")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListQuotes godoc
// @Summary List vendor quotes of a request
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} domain.QuoteDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id}/quotes [get]
func (h *MaintenanceHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.maintenanceService.ListQuotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list quotes")
		return
	}
	respondJSON(w, http.StatusOK, quotes)
}

// SubmitQuote godoc
// @Summary Submit a vendor quote
// @Description Accepts JSON, or multipart/form-data with a "quote" JSON field and an optional "document" file
// @Tags Maintenance
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Request ID"
// @Param request body domain.SubmitQuoteRequest true "Quote"
// @Success 201 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id}/quotes [post]
func (h *MaintenanceHandler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitQuoteRequest
	var doc *service.QuoteDocument

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		maxBytes := h.maxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload too large: maximum size is %dMB", h.maxUploadMB))
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("quote")), &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid quote field: must be a JSON object")
			return
		}
		if err := validate.Struct(&req); err != nil {
			respondValidationError(w, err)
			return
		}

		file, header, err := r.FormFile("document")
		if err == nil {
			defer file.Close()
			doc = &service.QuoteDocument{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			}
		} else if err != http.ErrMissingFile {
			respondWithError(w, http.StatusBadRequest, "Invalid document upload")
			return
		}
	} else if !decodeAndValidate(w, r, &req) {
		return
	}

	quote, err := h.maintenanceService.SubmitQuote(r.Context(), chi.URLParam(r, "id"), &req, doc)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to submit quote")
		return
	}
	respondJSON(w, http.StatusCreated, quote)
}

// DownloadQuoteDocument godoc
// @Summary Download a quote's vendor document
// @Tags Maintenance
// @Produce octet-stream
// @Param id path string true "Request ID"
// @Param quoteId path string true "Quote ID"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id}/quotes/{quoteId}/document [get]
func (h *MaintenanceHandler) DownloadQuoteDocument(w http.ResponseWriter, r *http.Request) {
	body, quote, err := h.maintenanceService.OpenQuoteDocument(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "quoteId"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to open quote document")
		return
	}
	defer body.Close()

	filename := quote.DocumentPath
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream quote document", zap.String("quoteID", quote.ID), zap.Error(err))
	}
}

// Approve godoc
// @Summary Approve the pending estimate or quotes
// @Description Landlord only
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} domain.MaintenanceRequestDTO
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /maintenance/{id}/approve [post]
func (h *MaintenanceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	result, err := h.maintenanceService.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to approve maintenance request")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Complete godoc
// @Summary Complete work and reconcile cost
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body domain.CompleteWorkRequest true "Actual cost"
// @Success 200 {object} domain.CompletionSummaryDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /maintenance/{id}/complete [post]
func (h *MaintenanceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteWorkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	summary, err := h.maintenanceService.CompleteWork(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to complete maintenance request")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
