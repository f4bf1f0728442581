package handler

import (
	"bytes"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/spending-insights/internal/config"
	"github.com/Dan9191/spending-insights/internal/export"
	"github.com/Dan9191/spending-insights/internal/ingest"
	"github.com/Dan9191/spending-insights/internal/middleware"
	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/Dan9191/spending-insights/internal/repository"
	"github.com/Dan9191/spending-insights/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// multipartOverhead is allowed on top of the file limit for boundaries and headers
const multipartOverhead = 64 << 10

type Handler struct {
	pipeline  *ingest.Pipeline
	analytics *service.Analytics
	store     repository.Store
	cfg       *config.Config
	log       *logrus.Logger
}

func NewHandler(pipeline *ingest.Pipeline, analytics *service.Analytics, store repository.Store, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{pipeline: pipeline, analytics: analytics, store: store, cfg: cfg, log: log}
}

// NewRouter registers every route at the root and under /api
func NewRouter(h *Handler, cfg *config.Config, log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	h.mount(r, cfg)
	h.mount(r.PathPrefix("/api").Subrouter(), cfg)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(cfg.CORSOrigin)(r),
			),
		),
	)
}

func (h *Handler) mount(r *mux.Router, cfg *config.Config) {
	r.Handle("/upload", middleware.AuthMiddleware(cfg)(http.HandlerFunc(h.Upload))).Methods(http.MethodPost)
	r.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)
	r.HandleFunc("/categories", h.Categories).Methods(http.MethodGet)
	r.HandleFunc("/anomalies", h.Anomalies).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.Transactions).Methods(http.MethodGet)
	r.HandleFunc("/export.xml", h.ExportXML).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// Upload handles POST /upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.cfg.MaxUploadBytes+1)); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if int64(buf.Len()) > h.cfg.MaxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), buf.Bytes())
	if err != nil {
		var parseErr *ingest.ParseError
		if errors.As(err, &parseErr) {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   "CSV parse error",
				"details": parseErr.Details,
			})
			return
		}
		h.log.WithError(err).WithField("file", header.Filename).Error("Upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store transactions")
		return
	}

	h.log.WithFields(logrus.Fields{
		"file":     header.Filename,
		"inserted": result.Inserted,
		"rejected": result.Rejected,
		"subject":  middleware.SubjectFrom(r.Context()),
	}).Info("Upload processed")
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Summary handles GET /summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to build summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// Categories handles GET /categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.analytics.Categories(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to build categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build categories")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// Anomalies handles GET /anomalies?z=
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	threshold := h.cfg.DefaultZ
	if raw := r.URL.Query().Get("z"); raw != "" {
		if z, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(z) && !math.IsInf(z, 0) {
			threshold = z
		}
	}

	anomalies, err := h.analytics.Anomalies(r.Context(), threshold)
	if err != nil {
		h.log.WithError(err).Error("Failed to compute anomalies")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute anomalies")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"threshold": threshold,
		"anomalies": anomalies,
	})
}

// transactionView is the JSON form of a transaction with a numeric amount
type transactionView struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// Transactions handles GET /transactions?search=&limit=&offset=
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := service.ClampFilter(models.TransactionFilter{
		Search: strings.ToLower(strings.TrimSpace(query.Get("search"))),
		Limit:  intParam(query.Get("limit"), service.DefaultLimit),
		Offset: intParam(query.Get("offset"), 0),
	})

	items, err := h.analytics.Transactions(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	views := make([]transactionView, len(items))
	for i, t := range items {
		views[i] = transactionView{ID: t.ID, Date: t.Date, Description: t.Description, Amount: t.Amount.InexactFloat64(), Category: t.Category}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  views,
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"search": filter.Search,
	})
}

// ExportXML handles GET /export.xml?search=
func (h *Handler) ExportXML(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	items, err := h.analytics.Export(r.Context(), search, export.MaxXMLItems)
	if err != nil {
		h.log.WithError(err).Error("Failed to export transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export transactions")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.xml"`)
	if err := export.WriteXML(w, items); err != nil {
		h.log.WithError(err).Error("Failed to write XML export")
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.WithError(err).Warn("Store ping failed")
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// maxIntParam bounds parsed query integers so huge inputs saturate instead of wrapping
var maxIntParam = decimal.NewFromInt(math.MaxInt32)

// intParam parses an integer query value, falling back to def when absent or malformed.
// Integral decimals such as "10.0" or "1e3" are accepted.
func intParam(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return def
	}
	if d.GreaterThan(maxIntParam) {
		return math.MaxInt32
	}
	if d.LessThan(maxIntParam.Neg()) {
		return -math.MaxInt32
	}
	return int(d.IntPart())
}
