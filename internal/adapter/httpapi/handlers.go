package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/usecase/export"
	"github.com/coinrank/coinrank-backend/internal/usecase/ingest"
)

type errorResponse struct {
	Error string `json:"error"`
}

type batchResponse struct {
	ID            string            `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	Filename      string            `json:"filename"`
	Status        string            `json:"status"`
	TotalRows     int               `json:"total_rows"`
	ProcessedRows int               `json:"processed_rows"`
	InvalidRows   int               `json:"invalid_rows"`
	ErrorDetail   []domain.RowError `json:"error_detail"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

type valuationResponse struct {
	UserID       uuid.UUID        `json:"user_id"`
	TotalValue   decimal.Decimal  `json:"total_value"`
	PctChange24h *decimal.Decimal `json:"pct_change_24h"`
	ComputedAt   time.Time        `json:"computed_at"`
}

type leaderboardEntryResponse struct {
	Rank         int              `json:"rank"`
	UserID       uuid.UUID        `json:"user_id"`
	TotalValue   decimal.Decimal  `json:"total_value"`
	PctChange24h *decimal.Decimal `json:"pct_change_24h"`
	SnapshotAt   time.Time        `json:"snapshot_at"`
}

func newBatchResponse(batch *domain.IngestBatch) batchResponse {
	detail := batch.ErrorDetail
	if detail == nil {
		detail = []domain.RowError{}
	}
	return batchResponse{
		ID:            batch.ID,
		UserID:        batch.UserID,
		Filename:      batch.Filename,
		Status:        string(batch.Status),
		TotalRows:     batch.TotalRows,
		ProcessedRows: batch.ProcessedRows,
		InvalidRows:   batch.InvalidRows,
		ErrorDetail:   detail,
		CreatedAt:     batch.CreatedAt,
		CompletedAt:   batch.CompletedAt,
	}
}

// handleUpload accepts a multipart CSV upload and runs the full
// ingestion synchronously. The response carries the terminal batch
// state, so the client does not have to poll for small files.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field in multipart form")
		return
	}
	defer file.Close()

	records, err := ingest.ReadCSV(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unreadable CSV: %v", err))
		return
	}

	batch, err := s.ingestService.NewBatch(r.Context(), userID, header.Filename)
	if err != nil {
		logger.L.Error("failed to create ingest batch", "userID", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create batch")
		return
	}

	batch, err = s.ingestService.ProcessBatch(r.Context(), batch, records)
	if err != nil && batch == nil {
		logger.L.Error("ingest processing failed", "userID", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	// A FAILED batch is still a well-formed outcome; report it as such.
	respondJSON(w, http.StatusCreated, newBatchResponse(batch))
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	batch, err := s.batchRepo.GetByID(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			respondError(w, http.StatusNotFound, "batch not found")
			return
		}
		logger.L.Error("failed to load batch", "batchID", batchID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load batch")
		return
	}
	respondJSON(w, http.StatusOK, newBatchResponse(batch))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.responseCache.Get(leaderboardCacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	entries, err := s.leaderboardService.Latest(r.Context())
	if err != nil {
		logger.L.Error("failed to load leaderboard", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	resp := make([]leaderboardEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, leaderboardEntryResponse{
			Rank:         entry.Rank,
			UserID:       entry.UserID,
			TotalValue:   entry.TotalValue,
			PctChange24h: entry.PctChange24h,
			SnapshotAt:   entry.SnapshotAt,
		})
	}
	s.responseCache.SetDefault(leaderboardCacheKey, resp)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	snap, err := s.valuationService.LatestForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrValuationNotFound) {
			respondError(w, http.StatusNotFound, "no valuation for user")
			return
		}
		logger.L.Error("failed to load valuation", "userID", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load valuation")
		return
	}

	respondJSON(w, http.StatusOK, valuationResponse{
		UserID:       snap.UserID,
		TotalValue:   snap.TotalValue,
		PctChange24h: snap.PctChange24h,
		ComputedAt:   snap.ComputedAt,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, contentType, err := s.exportService.Export(r.Context(), userID, format)
	if err != nil {
		logger.L.Error("failed to export holdings", "userID", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to export holdings")
		return
	}

	ext := "csv"
	if format == export.FormatJSON {
		ext = "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("holdings_%s.%s", userID, ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
