package dashboard

import (
	"bytes"
	"mime"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	httphandler "github.com/kjstillabower/weather-prediction-demo/internal/http"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
)

// MountFunc mounts a fresh board.
type MountFunc func() *Board

// Handler serves the current board and replaces it on remount.
type Handler struct {
	mount   MountFunc
	title   string
	refresh time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	board *Board
}

// NewHandler mounts the first board immediately.
func NewHandler(mount MountFunc, title string, refresh time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		mount:   mount,
		title:   title,
		refresh: refresh,
		logger:  logger,
		board:   mount(),
	}
}

// Board returns the current board.
func (h *Handler) Board() *Board {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.board
}

// Remount unmounts the current board and mounts a new one.
func (h *Handler) Remount() *Board {
	h.mu.Lock()
	old := h.board
	h.board = h.mount()
	b := h.board
	h.mu.Unlock()

	old.Unmount()
	h.logger.Info("dashboard remounted", zap.String("previous_mount_id", old.ID()), zap.String("mount_id", b.ID()))
	return b
}

// Close unmounts the current board.
func (h *Handler) Close() {
	h.Board().Unmount()
}

// GetPage handles GET /.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := renderPage(&buf, h.title, h.Board(), h.refresh); err != nil {
		if logger := observability.LoggerFromContext(r.Context()); logger != nil {
			logger.Error("render dashboard", zap.Error(err))
		}
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

type fieldsResponse struct {
	MountID   string      `json:"mountId"`
	MountedAt time.Time   `json:"mountedAt"`
	Pending   bool        `json:"pending"`
	Fields    []FieldView `json:"fields"`
}

func boardResponse(b *Board) fieldsResponse {
	snapshot := b.Snapshot()
	return fieldsResponse{MountID: b.ID(), MountedAt: b.MountedAt().UTC(), Pending: anyPending(snapshot), Fields: snapshot}
}

// GetFields handles GET /api/fields.
func (h *Handler) GetFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, boardResponse(h.Board()))
}

// PostRemount handles POST /api/remount. Browsers posting the page form are
// redirected back to the page.
func (h *Handler) PostRemount(w http.ResponseWriter, r *http.Request) {
	b := h.Remount()
	if isFormPost(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, boardResponse(b))
}

func isFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewRouter wires the dashboard routes with the shared middleware, health and metrics.
func NewRouter(h *Handler, health http.Handler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)

	router.HandleFunc("/", h.GetPage).Methods(http.MethodGet)
	router.HandleFunc("/api/fields", h.GetFields).Methods(http.MethodGet)
	router.HandleFunc("/api/remount", h.PostRemount).Methods(http.MethodPost)
	router.Handle("/health", health).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return router
}
