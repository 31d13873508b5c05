package stub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prepsnap-quiz/internal/auth"
	"prepsnap-quiz/internal/domain"
)

// NewRouter exposes the service over the same HTTP contract as the remote quiz service.
func NewRouter(service *Service, issuer *auth.Issuer) *mux.Router {
	h := &handler{service: service}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(issuer.Middleware)
	api.HandleFunc("/get-quiz-today", h.getQuizToday).Methods(http.MethodGet)
	api.HandleFunc("/submit-quiz", h.submitQuiz).Methods(http.MethodPost)
	return r
}

type handler struct {
	service *Service
}

func (h *handler) getQuizToday(w http.ResponseWriter, r *http.Request) {
	subject, _ := auth.SubjectFromContext(r.Context())
	quiz, err := h.service.Today(r.Context(), subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&sub); err != nil {
		http.Error(w, "invalid submission body", http.StatusBadRequest)
		return
	}
	if sub.AttemptID == 0 {
		http.Error(w, "attemptId is required", http.StatusBadRequest)
		return
	}

	subject, _ := auth.SubjectFromContext(r.Context())
	res, err := h.service.Grade(r.Context(), subject, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("stub: write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		http.Error(w, "no quiz today", http.StatusNotFound)
	case errors.Is(err, domain.ErrAttemptNotFound):
		http.Error(w, "attempt not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadySubmitted):
		http.Error(w, "attempt already submitted", http.StatusConflict)
	default:
		slog.ErrorContext(r.Context(), "stub: request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
