package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"workrecords/internal/domain"
)

// HTTPServer returns a configured http.Server exposing the work record API.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.log.Info("http server configured", slog.String("addr", addr))
	return srv
}

// Handler builds the router.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(a.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1/workrecords", func(api chi.Router) {
		api.Get("/", a.handleList)
		api.Post("/", a.handleCreate)
		api.Get("/count", a.handleCount)
		api.Get("/{id}", a.handleRead)
		api.Put("/{id}", a.handleUpdate)
		api.Delete("/{id}", a.handleDelete)
	})
	return r
}

// /api/v1/workrecords?queryType=...&query=...&offset=...&limit=...
func (a *App) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		a.writeError(w, &domain.ValidationError{Field: "offset", Msg: "must be an integer"})
		return
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		a.writeError(w, &domain.ValidationError{Field: "limit", Msg: "must be an integer"})
		return
	}
	recs, err := a.records.List(r.Context(), q.Get("queryType"), q.Get("query"), offset, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, recs)
}

func (a *App) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.records.Count(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (a *App) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec domain.WorkRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		a.writeError(w, &domain.ValidationError{Msg: "invalid request body"})
		return
	}
	created, err := a.records.Create(r.Context(), rec)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/workrecords/"+created.ID)
	a.writeJSON(w, http.StatusCreated, created)
}

func (a *App) handleRead(w http.ResponseWriter, r *http.Request) {
	rec, err := a.records.Read(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rec)
}

func (a *App) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var rec domain.WorkRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		a.writeError(w, &domain.ValidationError{Msg: "invalid request body"})
		return
	}
	updated, err := a.records.Update(r.Context(), chi.URLParam(r, "id"), rec)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, updated)
}

func (a *App) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.records.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", a.contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("encode response", slog.String("error", err.Error()))
	}
}

// writeError maps the error taxonomy to status codes. Anything unexpected is
// reported as a bare internal error.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := domain.ErrInternal.Error()
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, domain.ErrInternal):
	default:
		a.log.Error("unexpected error", slog.String("error", err.Error()))
	}
	a.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  msg,
	})
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("remote", r.RemoteAddr),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

func intParam(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	return strconv.Atoi(val)
}
