package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/handler/dto"
	"github.com/taskguard/taskguard/internal/middleware"
	"github.com/taskguard/taskguard/internal/service"
)

// APIHandler handles the JSON endpoints under /api.
type APIHandler struct {
	auth   *service.AuthService
	tasks  *service.TaskService
	logger *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(authSvc *service.AuthService, taskSvc *service.TaskService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		auth:   authSvc,
		tasks:  taskSvc,
		logger: logger,
	}
}

// Login exchanges credentials for a bearer token.
// POST /api/login
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email and password are required")
		return
	}

	issued, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("token issued",
		slog.String("token_id", issued.ID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(issued.ExpiresAt).Round(time.Second) / time.Second),
	})
}

// ListTasks returns the caller's tasks.
// GET /api/tasks
func (h *APIHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	tasks, err := h.tasks.List(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskResponses(tasks))
}

// CreateTask creates a task owned by the caller.
// POST /api/tasks
func (h *APIHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	var req dto.TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.tasks.Create(r.Context(), user.ID, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToTaskResponse(task))
}

// UpdateTask replaces title and description of one of the caller's tasks.
// PUT /api/tasks/{id}
func (h *APIHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
		return
	}

	var req dto.TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.tasks.Update(r.Context(), user.ID, id, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// DeleteTask removes one of the caller's tasks.
// DELETE /api/tasks/{id}
func (h *APIHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
		return
	}

	if err := h.tasks.Delete(r.Context(), user.ID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Task deleted"})
}

// handleServiceError maps service errors to HTTP responses.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", `Bearer realm="taskguard"`)
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="taskguard"`)
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationMessage(err))
	default:
		h.logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.Int64("user_id", auth.UserIDFromContext(r.Context())),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// validationMessage strips the sentinel prefix from a wrapped ErrInvalidInput.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == service.ErrInvalidInput.Error() {
		return "Invalid input"
	}
	return msg
}
