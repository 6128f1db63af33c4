// Package transport exposes the synchronizer's admin HTTP API.
package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/job"
)

type jobStatus struct {
	Name         string     `json:"name"`
	Running      bool       `json:"running"`
	LastStarted  *time.Time `json:"last_started,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

type journalStatus struct {
	MaxVerifiedHeight *uint64 `json:"max_verified_height,omitempty"`
	Error             string  `json:"error,omitempty"`
}

type statusResponse struct {
	Account string         `json:"account"`
	Jobs    []jobStatus    `json:"jobs"`
	Journal *journalStatus `json:"journal,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// AdminHandler serves the upload hook and status endpoints.
type AdminHandler struct {
	// ctx outlives requests so a triggered run is not canceled when the hook returns.
	ctx     context.Context
	account string
	upload  Job
	jobs    []Job
	journal Journal
	logger  *zap.Logger
}

// NewAdminHandler builds the handler. journal may be nil when no journal
// store is configured.
func NewAdminHandler(ctx context.Context, account string, upload Job, jobs []Job, journal Journal, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		ctx:     ctx,
		account: account,
		upload:  upload,
		jobs:    jobs,
		journal: journal,
		logger:  logger,
	}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload/hook", h.uploadHook)
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /health", h.health)
}

// Handler returns the admin routes wrapped with permissive CORS.
func (h *AdminHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return cors.Default().Handler(mux)
}

func (h *AdminHandler) uploadHook(w http.ResponseWriter, _ *http.Request) {
	err := h.upload.TryStart(h.ctx)
	switch {
	case errors.Is(err, job.ErrInProgress):
		h.write(w, http.StatusConflict, messageResponse{Message: "upload already in progress"})
	case err != nil:
		h.logger.Error("upload hook failed", zap.Error(err))
		h.write(w, http.StatusInternalServerError, messageResponse{Message: err.Error()})
	default:
		h.logger.Info("upload triggered via hook")
		h.write(w, http.StatusAccepted, messageResponse{Message: "upload started"})
	}
}

func (h *AdminHandler) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Account: h.account, Jobs: make([]jobStatus, 0, len(h.jobs))}
	for _, j := range h.jobs {
		st := jobStatus{Name: j.Name(), Running: j.Running()}
		if report, ok := j.LastReport(); ok {
			st.LastStarted = &report.Started
			st.LastFinished = &report.Finished
			if report.Err != nil {
				st.LastError = report.Err.Error()
			}
		}
		resp.Jobs = append(resp.Jobs, st)
	}

	if h.journal != nil {
		js := &journalStatus{}
		height, ok, err := h.journal.MaxVerifiedHeight(r.Context(), h.account)
		switch {
		case err != nil:
			h.logger.Warn("journal status unavailable", zap.Error(err))
			js.Error = err.Error()
		case ok:
			js.MaxVerifiedHeight = &height
		}
		resp.Journal = js
	}

	h.write(w, http.StatusOK, resp)
}

func (h *AdminHandler) health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (h *AdminHandler) write(w http.ResponseWriter, code int, body any) {
	payload, err := sonnet.Marshal(body)
	if err != nil {
		h.logger.Error("encode admin response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(payload); err != nil {
		h.logger.Debug("write admin response", zap.Error(err))
	}
}
