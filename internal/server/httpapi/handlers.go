package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type handlers struct {
	deps Deps
}

type errorResponse struct {
	Error string `json:"error"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type pushRequest struct {
	Data json.RawMessage `json:"data"`
}

type pushResponse struct {
	Data []models.AckItem `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// statusFor maps service errors to HTTP status codes. Internal errors are
// reported without detail.
func statusFor(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, services.ErrMalformedRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, models.ErrUnknownEntity), errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, common.ErrorInternal.Error()
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.deps.Logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	respondError(w, status, msg)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", services.ErrMalformedRequest, err)
	}
	return nil
}

func setServerTime(w http.ResponseWriter, t time.Time) {
	w.Header().Set(common.SyncTimeHeaderName, t.UTC().Format(time.RFC3339Nano))
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(r.Context()); err != nil {
			h.deps.Logger.Warn(r.Context(), "storage ping failed", "error", err)
			respondError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.deps.Users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (h *handlers) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.deps.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *handlers) push(w http.ResponseWriter, r *http.Request) {
	entity, err := models.ParseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req pushRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.deps.Sync.Push(r.Context(), userIDFrom(r.Context()), entity, req.Data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := res.Items
	if items == nil {
		items = []models.AckItem{}
	}
	setServerTime(w, res.ServerTime)
	respondJSON(w, http.StatusOK, pushResponse{Data: items})
}

func (h *handlers) pull(w http.ResponseWriter, r *http.Request) {
	entity, err := models.ParseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = &t
	}

	res, err := h.deps.Sync.Pull(r.Context(), userIDFrom(r.Context()), entity, since)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	setServerTime(w, res.ServerTime)
	respondJSON(w, http.StatusOK, res.Records)
}
