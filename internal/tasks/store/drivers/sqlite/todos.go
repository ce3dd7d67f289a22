package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/idx"
)

type todosRepo struct {
	q querier
}

func (r *todosRepo) CreateTodo(ctx context.Context, t domain.Todo) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO todos (id, user_id, title, completed, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.UserID.String(), t.Title, t.Completed,
		mapOptionalInt64(t.Priority), mapOptionalTime(t.DueDate), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *todosRepo) GetTodo(ctx context.Context, id, userID idx.ID) (domain.Todo, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, title, completed, priority, due_date, created_at, updated_at
		FROM todos WHERE id = ? AND user_id = ?`,
		id.String(), userID.String(),
	)
	return scanTodo(row)
}

func (r *todosRepo) ListTodos(
	ctx context.Context,
	userID idx.ID,
	f store.TodoFilter,
) ([]domain.Todo, error) {
	where, args := todoFilterClause(userID, f)

	order := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		order = "ASC"
	}
	column := sortColumn(f.Sort)

	query := fmt.Sprintf(`
		SELECT id, user_id, title, completed, priority, due_date, created_at, updated_at
		FROM todos %s ORDER BY %s %s LIMIT ? OFFSET ?`, where, column, order)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Todo, 0, f.Limit)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *todosRepo) CountTodos(ctx context.Context, userID idx.ID, f store.TodoFilter) (int64, error) {
	where, args := todoFilterClause(userID, f)

	var total int64
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM todos "+where, args...).Scan(&total)
	return total, err
}

func (r *todosRepo) UpdateTodo(ctx context.Context, t domain.Todo) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE todos SET title = ?, completed = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		t.Title, t.Completed, mapOptionalInt64(t.Priority), mapOptionalTime(t.DueDate),
		t.UpdatedAt, t.ID.String(), t.UserID.String(),
	)
	if err != nil {
		return err
	}
	return requireRowHit(res)
}

func (r *todosRepo) DeleteTodo(ctx context.Context, id, userID idx.ID) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM todos WHERE id = ? AND user_id = ?`,
		id.String(), userID.String(),
	)
	if err != nil {
		return err
	}
	return requireRowHit(res)
}

func requireRowHit(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func todoFilterClause(userID idx.ID, f store.TodoFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID.String()}

	if f.Search != "" {
		clauses = append(clauses, "title LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	if f.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, *f.Completed)
	}
	if f.Priority != nil {
		clauses = append(clauses, "priority = ?")
		args = append(args, *f.Priority)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// sortColumn vets the sort target one last time before it is spliced into
// SQL; anything unexpected falls back to created_at.
func sortColumn(s string) string {
	switch s {
	case "created_at", "updated_at", "priority", "title", "completed", "due_date":
		return s
	default:
		return "created_at"
	}
}

func scanTodo(row rowScanner) (domain.Todo, error) {
	var t domain.Todo
	var id, uid string
	var priority sql.NullInt64
	var dueDate sql.NullTime
	err := row.Scan(&id, &uid, &t.Title, &t.Completed, &priority, &dueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Todo{}, mapNotFound(err)
	}
	t.ID = idx.ID(id)
	t.UserID = idx.ID(uid)
	t.Priority = mapNullInt64Ptr(priority)
	t.DueDate = mapNullTimePtr(dueDate)
	return t, nil
}
