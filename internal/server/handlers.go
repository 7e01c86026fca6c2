package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/repository"
	"github.com/vanshika/muletrace/internal/service"
)

const uploadField = "file"

// Analyzer runs the detection pipeline over one batch of raw rows.
type Analyzer interface {
	Analyze(ctx context.Context, rows []ingest.RawRow) (domain.Report, error)
}

// RowSource loads stored transactions for analysis.
type RowSource interface {
	ExportRows(ctx context.Context, filter repository.ExportFilter) ([]ingest.RawRow, error)
}

// ReportPublisher forwards finished reports to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

// APIHandlers exposes HTTP handlers for the analysis API.
type APIHandlers struct {
	logger         *slog.Logger
	analyzer       Analyzer
	source         RowSource
	publisher      ReportPublisher
	uploadMaxBytes int64
}

// HandlerOptions carries the optional collaborators of APIHandlers.
type HandlerOptions struct {
	Source         RowSource
	Publisher      ReportPublisher
	UploadMaxBytes int64
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, analyzer Analyzer, opts HandlerOptions) *APIHandlers {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 10 << 20
	}
	return &APIHandlers{
		logger:         logger,
		analyzer:       analyzer,
		source:         opts.Source,
		publisher:      opts.Publisher,
		uploadMaxBytes: opts.UploadMaxBytes,
	}
}

// handleAnalyze accepts a CSV either as the multipart field "file" or as a
// raw text/csv request body.
func (h *APIHandlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	body, closeBody, err := h.uploadReader(r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	defer closeBody()

	rows, err := ingest.ReadCSV(body)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	h.analyzeAndRespond(w, r, rows)
}

// handleAnalyzeStored analyzes transactions already held in the graph
// database, optionally bounded by from/to (RFC 3339) and limit.
func (h *APIHandlers) handleAnalyzeStored(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "graph source is not configured")
		return
	}

	filter, err := parseExportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.source.ExportRows(r.Context(), filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to load stored transactions", "error", err)
		writeError(w, http.StatusBadGateway, "failed to load stored transactions")
		return
	}

	h.analyzeAndRespond(w, r, rows)
}

func (h *APIHandlers) analyzeAndRespond(w http.ResponseWriter, r *http.Request, rows []ingest.RawRow) {
	report, err := h.analyzer.Analyze(r.Context(), rows)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), report); err != nil {
			h.logger.Warn("failed to publish report", "error", err, "analysisId", report.Summary.AnalysisID)
		}
	}

	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "fraud_report_"+report.Summary.AnalysisID+".json"))
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *APIHandlers) uploadReader(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, errNoFile
		}
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

var errNoFile = errors.New("no file uploaded")

func (h *APIHandlers) writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, errNoFile), errors.Is(err, ingest.ErrMissingColumns):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadRequest, "invalid csv upload: "+err.Error())
	}
}

func (h *APIHandlers) writeAnalysisError(w http.ResponseWriter, err error) {
	var detectorErr *service.DetectorError
	switch {
	case errors.Is(err, service.ErrEmptyGraph):
		writeError(w, http.StatusUnprocessableEntity, "no valid transactions in upload")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("analysis aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "analysis aborted")
	case errors.As(err, &detectorErr):
		h.logger.Error("detector failed", "detector", detectorErr.Detector, "error", detectorErr.Err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	default:
		h.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func parseExportFilter(r *http.Request) (repository.ExportFilter, error) {
	query := r.URL.Query()
	var filter repository.ExportFilter

	if v := query.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid from timestamp")
		}
		filter.From = &ts
	}
	if v := query.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid to timestamp")
		}
		filter.To = &ts
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
