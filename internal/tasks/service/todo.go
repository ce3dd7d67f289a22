package service

import (
	"context"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/idx"
)

// Listing defaults and bounds. Handlers enforce these on input; the service
// re-applies them so direct callers get the same behaviour.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// sortColumns maps the client-facing sort field names onto vetted SQL
// columns. Anything outside this map is a validation error upstream.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"priority":  "priority",
	"title":     "title",
	"completed": "completed",
	"dueDate":   "due_date",
}

// SortFieldValid reports whether the client-facing sort name is known.
func SortFieldValid(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

type TodoService struct {
	Store store.Store
}

type CreateTodoInput struct {
	Title     string
	Completed bool
	Priority  *int64
	DueDate   *time.Time
}

// UpdateTodoInput is a partial update. Nil pointers mean "leave unchanged";
// DueDateSet distinguishes clearing the due date (true, DueDate nil) from
// not touching it (false).
type UpdateTodoInput struct {
	Title      *string
	Completed  *bool
	Priority   *int64
	DueDate    *time.Time
	DueDateSet bool
}

type ListTodosQuery struct {
	Search    string
	Completed *bool
	Priority  *int64
	Sort      string
	Order     string
	Page      int
	Limit     int
}

type TodoPage struct {
	Items []domain.Todo
	Page  int
	Limit int
	Total int64
	Pages int64
	Sort  string
	Order string
}

func (s *TodoService) Create(ctx context.Context, userID idx.ID, in CreateTodoInput) (domain.Todo, error) {
	now := time.Now().UTC()
	t := domain.Todo{
		ID:        idx.New(),
		UserID:    userID,
		Title:     in.Title,
		Completed: in.Completed,
		Priority:  in.Priority,
		DueDate:   in.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Todos().CreateTodo(ctx, t); err != nil {
		return domain.Todo{}, err
	}
	return t, nil
}

// List returns one page of the user's items plus paging metadata. Every
// query is scoped to the owner, so other users' items are invisible here by
// construction.
func (s *TodoService) List(ctx context.Context, userID idx.ID, q ListTodosQuery) (TodoPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Sort == "" {
		q.Sort = "createdAt"
	}
	if q.Order == "" {
		q.Order = "desc"
	}

	filter := store.TodoFilter{
		Search:    q.Search,
		Completed: q.Completed,
		Priority:  q.Priority,
		Sort:      sortColumns[q.Sort],
		Order:     q.Order,
		Offset:    (q.Page - 1) * q.Limit,
		Limit:     q.Limit,
	}

	items, err := s.Store.Todos().ListTodos(ctx, userID, filter)
	if err != nil {
		return TodoPage{}, err
	}
	total, err := s.Store.Todos().CountTodos(ctx, userID, filter)
	if err != nil {
		return TodoPage{}, err
	}

	pages := total / int64(q.Limit)
	if total%int64(q.Limit) != 0 {
		pages++
	}

	return TodoPage{
		Items: items,
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
		Pages: pages,
		Sort:  q.Sort,
		Order: q.Order,
	}, nil
}

func (s *TodoService) Get(ctx context.Context, id, userID idx.ID) (domain.Todo, error) {
	return s.Store.Todos().GetTodo(ctx, id, userID)
}

func (s *TodoService) Update(
	ctx context.Context,
	id, userID idx.ID,
	in UpdateTodoInput,
) (domain.Todo, error) {
	t, err := s.Store.Todos().GetTodo(ctx, id, userID)
	if err != nil {
		return domain.Todo{}, err
	}

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		t.Priority = in.Priority
	}
	if in.DueDateSet {
		t.DueDate = in.DueDate
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.Store.Todos().UpdateTodo(ctx, t); err != nil {
		return domain.Todo{}, err
	}
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, id, userID idx.ID) error {
	return s.Store.Todos().DeleteTodo(ctx, id, userID)
}
