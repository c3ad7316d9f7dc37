package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/middleware"
	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/service"
	"github.com/taskguard/taskguard/internal/session"
	"github.com/taskguard/taskguard/internal/web"
)

// Inline form errors.
const (
	msgEmailExists        = "Email already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
)

// WebHandler serves the HTML pages backed by a signed session cookie.
type WebHandler struct {
	auth     *service.AuthService
	tasks    *service.TaskService
	sessions *session.Manager
	pages    *web.Renderer
	logger   *slog.Logger
}

// NewWebHandler creates a new WebHandler.
func NewWebHandler(
	authSvc *service.AuthService,
	taskSvc *service.TaskService,
	sessions *session.Manager,
	pages *web.Renderer,
	logger *slog.Logger,
) *WebHandler {
	return &WebHandler{
		auth:     authSvc,
		tasks:    taskSvc,
		sessions: sessions,
		pages:    pages,
		logger:   logger,
	}
}

// RegisterForm renders the registration page.
// GET /register
func (h *WebHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageRegister, web.PageData{Title: "Register"})
}

// Register creates an account and sends the browser to the login page.
// POST /register
func (h *WebHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := r.PostFormValue("email")

	_, err := h.auth.Register(r.Context(), email, r.PostFormValue("password"))
	switch {
	case err == nil:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, service.ErrEmailExists):
		h.render(w, r, http.StatusOK, web.PageRegister, web.PageData{Title: "Register", Email: email, Error: msgEmailExists})
	case errors.Is(err, service.ErrInvalidInput):
		h.render(w, r, http.StatusUnprocessableEntity, web.PageRegister, web.PageData{Title: "Register", Email: email, Error: validationMessage(err)})
	default:
		h.serverError(w, r, err)
	}
}

// LoginForm renders the login page.
// GET /login
func (h *WebHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageLogin, web.PageData{Title: "Log in"})
}

// Login checks credentials and starts a session.
// POST /login
func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := r.PostFormValue("email")

	user, err := h.auth.Authenticate(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.render(w, r, http.StatusOK, web.PageLogin, web.PageData{Title: "Log in", Email: email, Error: msgInvalidCredentials})
			return
		}
		h.serverError(w, r, err)
		return
	}

	if err := h.sessions.Save(w, user.ID); err != nil {
		h.serverError(w, r, fmt.Errorf("save session: %w", err))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// LoginLimited renders the login page for a throttled attempt.
func (h *WebHandler) LoginLimited(w http.ResponseWriter, r *http.Request, _ time.Duration) {
	h.render(w, r, http.StatusTooManyRequests, web.PageLogin, web.PageData{Title: "Log in", Error: msgTooManyAttempts})
}

// Logout clears the session.
// GET /logout
func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Dashboard lists the signed-in user's tasks.
// GET /dashboard
func (h *WebHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	tasks, err := h.tasks.List(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, web.PageDashboard, web.PageData{Title: "Dashboard", User: user, Tasks: tasks})
}

// AddTaskForm renders an empty task form.
// GET /tasks/add
func (h *WebHandler) AddTaskForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageTaskForm, addFormData(auth.MustUserFromContext(r.Context()), nil))
}

// AddTask creates a task from the submitted form.
// POST /tasks/add
func (h *WebHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	if !h.parseForm(w, r) {
		return
	}
	input := formTaskInput(r)

	_, err := h.tasks.Create(r.Context(), user.ID, input)
	switch {
	case err == nil:
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case errors.Is(err, service.ErrInvalidInput):
		data := addFormData(user, &model.Task{Title: input.Title, Description: input.Description})
		data.Error = validationMessage(err)
		h.render(w, r, http.StatusUnprocessableEntity, web.PageTaskForm, data)
	default:
		h.serverError(w, r, err)
	}
}

// EditTaskForm renders the form for one of the user's tasks.
// GET /tasks/edit/{id}
func (h *WebHandler) EditTaskForm(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	task, err := h.tasks.Get(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, web.PageTaskForm, editFormData(user, task))
}

// EditTask saves the submitted form.
// POST /tasks/edit/{id}
func (h *WebHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	input := formTaskInput(r)

	_, err := h.tasks.Update(r.Context(), user.ID, id, input)
	switch {
	case err == nil, errors.Is(err, service.ErrTaskNotFound):
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case errors.Is(err, service.ErrInvalidInput):
		data := editFormData(user, &model.Task{ID: id, Title: input.Title, Description: input.Description})
		data.Error = validationMessage(err)
		h.render(w, r, http.StatusUnprocessableEntity, web.PageTaskForm, data)
	default:
		h.serverError(w, r, err)
	}
}

// DeleteTask removes one of the user's tasks. Missing and foreign tasks are
// ignored.
// GET /tasks/delete/{id}
func (h *WebHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	if id, ok := parseID(chi.URLParam(r, "id")); ok {
		if err := h.tasks.Delete(r.Context(), user.ID, id); err != nil && !errors.Is(err, service.ErrTaskNotFound) {
			h.serverError(w, r, err)
			return
		}
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *WebHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data web.PageData) {
	if err := h.pages.Render(w, status, page, data); err != nil {
		h.logger.Error("render failed",
			slog.String("page", page),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *WebHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		slog.String("error", err.Error()),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int64("user_id", auth.UserIDFromContext(r.Context())),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	h.render(w, r, http.StatusInternalServerError, web.PageError, web.PageData{Title: "Error"})
}

func formTaskInput(r *http.Request) service.TaskInput {
	return service.TaskInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
	}
}

func addFormData(user *model.User, task *model.Task) web.PageData {
	return web.PageData{
		Title:      "Add task",
		User:       user,
		Task:       task,
		Action:     "Add",
		FormAction: "/tasks/add",
	}
}

func editFormData(user *model.User, task *model.Task) web.PageData {
	return web.PageData{
		Title:      "Edit task",
		User:       user,
		Task:       task,
		Action:     "Edit",
		FormAction: fmt.Sprintf("/tasks/edit/%d", task.ID),
	}
}
