package http

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DemoGreeting is the fixed body of the demo responder.
const DemoGreeting = "Hello, Express Setup!"

// DemoHandler answers every request with DemoGreeting. Headers and body are ignored.
func DemoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, DemoGreeting)
}

// NewDemoRouter serves DemoHandler on GET and HEAD /. Other paths fall through to the 404 handler.
func NewDemoRouter(logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", DemoHandler).Methods(http.MethodGet, http.MethodHead)
	return router
}
