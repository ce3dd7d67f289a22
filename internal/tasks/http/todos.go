package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/service"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/httpx"
	"github.com/copperkettle/tasklist/pkg/idx"
)

const maxTitleLength = 500

// TodosHandler serves the /todos endpoints. Every operation is scoped to the
// authenticated user; an item belonging to someone else is reported as
// NotFound rather than Forbidden.
type TodosHandler struct {
	Todos *service.TodoService
}

type todoResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Priority  *int64     `json:"priority"`
	DueDate   *time.Time `json:"dueDate"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toTodoResponse(t domain.Todo) todoResponse {
	return todoResponse{
		ID:        t.ID.String(),
		Title:     t.Title,
		Completed: t.Completed,
		Priority:  t.Priority,
		DueDate:   t.DueDate,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type todoPageResponse struct {
	Items []todoResponse `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int64          `json:"total"`
	Pages int64          `json:"pages"`
	Sort  string         `json:"sort"`
	Order string         `json:"order"`
}

type createTodoRequest struct {
	Title     string  `json:"title"`
	Completed *bool   `json:"completed"`
	Priority  *int64  `json:"priority"`
	DueDate   *string `json:"dueDate"`
}

// updateTodoRequest keeps DueDate raw so an explicit null (clear the date)
// can be told apart from the field being absent (leave it alone).
type updateTodoRequest struct {
	Title     *string         `json:"title"`
	Completed *bool           `json:"completed"`
	Priority  *int64          `json:"priority"`
	DueDate   json.RawMessage `json:"dueDate"`
}

// HandleCreate serves POST /todos.
func (h *TodosHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]string{"body": "invalid JSON body"})
		return
	}

	details := map[string]string{}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		details["title"] = "title is required"
	} else if len(req.Title) > maxTitleLength {
		details["title"] = "title must be at most 500 characters"
	}
	if req.Priority != nil && !validPriority(*req.Priority) {
		details["priority"] = "priority must be between 1 and 3"
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := parseDueDate(*req.DueDate)
		if err != nil {
			details["dueDate"] = "dueDate must be an RFC 3339 timestamp or YYYY-MM-DD date"
		} else {
			dueDate = &parsed
		}
	}
	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	in := service.CreateTodoInput{
		Title:    req.Title,
		Priority: req.Priority,
		DueDate:  dueDate,
	}
	if req.Completed != nil {
		in.Completed = *req.Completed
	}

	t, err := h.Todos.Create(ctx, userID, in)
	if err != nil {
		writeInternalError(ctx, w, "todo creation failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toTodoResponse(t))
}

// HandleList serves GET /todos with filter, sort and paging query params.
func (h *TodosHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	q, details := parseListQuery(r)
	if details != nil {
		writeValidationError(w, details)
		return
	}

	page, err := h.Todos.List(ctx, userID, q)
	if err != nil {
		writeInternalError(ctx, w, "todo listing failed", err)
		return
	}

	items := make([]todoResponse, 0, len(page.Items))
	for _, t := range page.Items {
		items = append(items, toTodoResponse(t))
	}

	httpx.WriteJSON(w, http.StatusOK, todoPageResponse{
		Items: items,
		Page:  page.Page,
		Limit: page.Limit,
		Total: page.Total,
		Pages: page.Pages,
		Sort:  page.Sort,
		Order: page.Order,
	})
}

// HandleGet serves GET /todos/{id}.
func (h *TodosHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID)
		return
	}

	t, err := h.Todos.Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound)
			return
		}
		writeInternalError(ctx, w, "todo lookup failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(t))
}

// HandleUpdate serves PATCH /todos/{id}.
func (h *TodosHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID)
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]string{"body": "invalid JSON body"})
		return
	}

	in, details := req.toInput()
	if details != nil {
		writeValidationError(w, details)
		return
	}

	t, err := h.Todos.Update(ctx, id, userID, in)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound)
			return
		}
		writeInternalError(ctx, w, "todo update failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(t))
}

// HandleDelete serves DELETE /todos/{id}.
func (h *TodosHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID)
		return
	}

	if err := h.Todos.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound)
			return
		}
		writeInternalError(ctx, w, "todo deletion failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (req *updateTodoRequest) toInput() (service.UpdateTodoInput, map[string]string) {
	details := map[string]string{}
	in := service.UpdateTodoInput{
		Completed: req.Completed,
		Priority:  req.Priority,
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			details["title"] = "title must not be empty"
		} else if len(title) > maxTitleLength {
			details["title"] = "title must be at most 500 characters"
		}
		in.Title = &title
	}
	if req.Priority != nil && !validPriority(*req.Priority) {
		details["priority"] = "priority must be between 1 and 3"
	}

	if req.DueDate != nil {
		in.DueDateSet = true
		if string(req.DueDate) != "null" {
			var raw string
			if err := json.Unmarshal(req.DueDate, &raw); err != nil {
				details["dueDate"] = "dueDate must be a string or null"
			} else if parsed, err := parseDueDate(raw); err != nil {
				details["dueDate"] = "dueDate must be an RFC 3339 timestamp or YYYY-MM-DD date"
			} else {
				in.DueDate = &parsed
			}
		}
	}

	if in.Title == nil && in.Completed == nil && in.Priority == nil && !in.DueDateSet {
		details["body"] = "at least one field must be provided"
	}

	if len(details) > 0 {
		return service.UpdateTodoInput{}, details
	}
	return in, nil
}

func parseListQuery(r *http.Request) (service.ListTodosQuery, map[string]string) {
	details := map[string]string{}
	values := r.URL.Query()

	q := service.ListTodosQuery{
		Search: strings.TrimSpace(values.Get("search")),
	}

	if raw := values.Get("completed"); raw != "" {
		switch raw {
		case "true":
			v := true
			q.Completed = &v
		case "false":
			v := false
			q.Completed = &v
		default:
			details["completed"] = "completed must be true or false"
		}
	}

	if raw := values.Get("priority"); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || !validPriority(p) {
			details["priority"] = "priority must be between 1 and 3"
		} else {
			q.Priority = &p
		}
	}

	if raw := values.Get("sort"); raw != "" {
		if !service.SortFieldValid(raw) {
			details["sort"] = "unknown sort field"
		} else {
			q.Sort = raw
		}
	}

	if raw := values.Get("order"); raw != "" {
		if raw != "asc" && raw != "desc" {
			details["order"] = "order must be asc or desc"
		} else {
			q.Order = raw
		}
	}

	if raw := values.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			details["page"] = "page must be a positive integer"
		} else {
			q.Page = p
		}
	}

	if raw := values.Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > service.MaxPageSize {
			details["limit"] = "limit must be between 1 and 100"
		} else {
			q.Limit = l
		}
	}

	if len(details) > 0 {
		return service.ListTodosQuery{}, details
	}
	return q, nil
}

func validPriority(p int64) bool { return p >= 1 && p <= 3 }

// parseDueDate accepts a full RFC 3339 timestamp or a bare date, which is
// taken as midnight UTC.
func parseDueDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}
