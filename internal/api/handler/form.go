package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/service"
)

const maxRequestBody = 64 << 10

// FormHandler handles download form HTTP requests.
type FormHandler struct {
	formSvc *service.FormService
	logger  *slog.Logger
}

// NewFormHandler creates a new form handler.
func NewFormHandler(formSvc *service.FormService, logger *slog.Logger) *FormHandler {
	return &FormHandler{
		formSvc: formSvc,
		logger:  logger,
	}
}

// CreateFormRequest is the optional body of POST /api/v1/forms.
type CreateFormRequest struct {
	Theme string `json:"theme,omitempty"`
}

// UpdateFormRequest is the body of PATCH /api/v1/forms/{formID}.
// Absent fields are left unchanged.
type UpdateFormRequest struct {
	URL     *string `json:"url,omitempty"`
	Format  *string `json:"format,omitempty"`
	Quality *string `json:"quality,omitempty"`
}

// SubmitResponse is returned by POST /api/v1/forms/{formID}/submit.
type SubmitResponse struct {
	Form  domain.FormSnapshot `json:"form"`
	Error string              `json:"error,omitempty"`
}

// DetectResponse is returned by GET /api/v1/detect.
type DetectResponse struct {
	URL         string          `json:"url"`
	Platform    domain.Platform `json:"platform"`
	DisplayName string          `json:"display_name,omitempty"`
	Supported   bool            `json:"supported"`
}

// ThemeListResponse is returned by GET /api/v1/themes.
type ThemeListResponse struct {
	Default string   `json:"default"`
	Themes  []string `json:"themes"`
}

// Create handles POST /api/v1/forms
// The theme may be given in the JSON body or as ?theme=.
func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFormRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Theme == "" {
		req.Theme = r.URL.Query().Get("theme")
	}

	f, err := h.formSvc.Create(r.Context(), req.Theme)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, f.Snapshot())
}

// Get handles GET /api/v1/forms/{formID}
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.formSvc.Get(r.Context(), formID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f.Snapshot())
}

// Update handles PATCH /api/v1/forms/{formID}
func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateFormRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var patch domain.FormPatch
	patch.URL = req.URL
	if req.Format != nil {
		format, err := domain.ParseFormat(*req.Format)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Format = &format
	}
	if req.Quality != nil {
		quality, err := domain.ParseQuality(*req.Quality)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Quality = &quality
	}

	snap, err := h.formSvc.Update(r.Context(), formID(r), patch)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// Submit handles POST /api/v1/forms/{formID}/submit
// Returns 202 when a session started, 422 with the themed message when the
// URL is not recognized, and 409 while a session is already running.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := formID(r)
	snap, err := h.formSvc.Submit(r.Context(), id)

	switch {
	case err == nil:
		h.writeJSON(w, http.StatusAccepted, SubmitResponse{Form: snap})
	case errors.Is(err, domain.ErrInvalidURL):
		h.writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{Form: snap, Error: snap.Error})
	case errors.Is(err, domain.ErrBusy):
		h.writeJSON(w, http.StatusConflict, SubmitResponse{Form: snap, Error: "download already in progress"})
	default:
		h.writeServiceError(w, err)
	}
}

// Delete handles DELETE /api/v1/forms/{formID}
func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.formSvc.Delete(r.Context(), formID(r)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/v1/forms/{formID}/stream
// Server-Sent Events endpoint that pushes a snapshot on every state change.
func (h *FormHandler) Stream(w http.ResponseWriter, r *http.Request) {
	f, err := h.formSvc.Get(r.Context(), formID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	stream, ok := startSSE(w)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	subID, snapCh := f.Subscribe()
	defer f.Unsubscribe(subID)

	h.logger.Debug("form stream connected", "form_id", f.ID(), "subscriber_id", subID)

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("form stream disconnected", "form_id", f.ID(), "subscriber_id", subID)
			return

		case snap, ok := <-snapCh:
			if !ok {
				stream.send("closed", struct{}{})
				return
			}
			if err := stream.send("snapshot", snap); err != nil {
				h.logger.Warn("failed to send snapshot", "form_id", f.ID(), "error", err)
			}

		case <-keepalive.C:
			stream.keepalive()
		}
	}
}

// Detect handles GET /api/v1/detect?url=
func (h *FormHandler) Detect(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	platform := domain.DetectPlatform(raw)

	h.writeJSON(w, http.StatusOK, DetectResponse{
		URL:         raw,
		Platform:    platform,
		DisplayName: platform.DisplayName(),
		Supported:   platform.Known(),
	})
}

// Themes handles GET /api/v1/themes
func (h *FormHandler) Themes(w http.ResponseWriter, r *http.Request) {
	themes := h.formSvc.Themes()
	h.writeJSON(w, http.StatusOK, ThemeListResponse{
		Default: themes.Default().Name,
		Themes:  themes.Names(),
	})
}

func formID(r *http.Request) domain.FormID {
	return domain.FormID(chi.URLParam(r, "formID"))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFormNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFormClosed):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidQuality),
		errors.Is(err, domain.ErrUnknownTheme):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *FormHandler) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("form request failed", "error", err)
		h.writeError(w, status, "internal error")
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *FormHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *FormHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
