package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

// ExecutionRepo implements outbound.ExecutionRepository using SQLite.
type ExecutionRepo struct {
	db *sql.DB
}

// NewExecutionRepo creates a new ExecutionRepo backed by the given store.
func NewExecutionRepo(store *Store) *ExecutionRepo {
	return &ExecutionRepo{db: store.DB}
}

var _ outbound.ExecutionRepository = (*ExecutionRepo)(nil)

const executionColumns = `id, action, kind, namespace, names, status, commands,
	output, error_message, error_kind, duration_ms, created_at`

// Create inserts a new execution row.
func (r *ExecutionRepo) Create(ctx context.Context, e model.Execution) error {
	names, err := marshalStrings(e.Names)
	if err != nil {
		return fmt.Errorf("marshaling execution names: %w", err)
	}
	commands, err := marshalStrings(e.Commands)
	if err != nil {
		return fmt.Errorf("marshaling execution commands: %w", err)
	}

	q := `INSERT INTO executions (` + executionColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q,
		e.ID, string(e.Action), e.Kind, e.Namespace, names,
		string(e.Status), commands, e.Output,
		e.ErrorMessage, string(e.ErrorKind), e.DurationMs,
		e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// GetByID fetches a single execution.
func (r *ExecutionRepo) GetByID(ctx context.Context, id string) (model.Execution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Execution{}, fmt.Errorf("execution %s %w", id, outbound.ErrNotFound)
	}
	if err != nil {
		return model.Execution{}, fmt.Errorf("fetching execution: %w", err)
	}
	return e, nil
}

// allowedExecutionOrderColumns defines valid columns for ORDER BY to prevent SQL injection.
var allowedExecutionOrderColumns = map[string]bool{
	"created_at": true, "action": true, "status": true,
	"namespace": true, "duration_ms": true,
}

// List returns a paginated, filtered list of executions. Pages start at 1.
func (r *ExecutionRepo) List(ctx context.Context, filter outbound.ExecutionFilter, page outbound.PageRequest) (outbound.PageResult[model.Execution], error) {
	where, args := buildExecutionWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.Execution]{}, fmt.Errorf("counting executions: %w", err)
	}

	orderCol := "created_at"
	if page.OrderBy != "" {
		if !allowedExecutionOrderColumns[page.OrderBy] {
			return outbound.PageResult[model.Execution]{}, fmt.Errorf("invalid order column: %q", page.OrderBy)
		}
		orderCol = page.OrderBy
	}
	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	size := page.Size
	if size <= 0 {
		size = 20
	}
	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}
	offset := (pageNum - 1) * size

	dataQ := fmt.Sprintf(`SELECT %s FROM executions%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		executionColumns, where, orderCol, dir, dir)

	rows, err := r.db.QueryContext(ctx, dataQ, append(args, size, offset)...)
	if err != nil {
		return outbound.PageResult[model.Execution]{}, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()

	items := make([]model.Execution, 0)
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return outbound.PageResult[model.Execution]{}, fmt.Errorf("scanning execution: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.Execution]{}, fmt.Errorf("iterating executions: %w", err)
	}

	return outbound.PageResult[model.Execution]{
		Items:      items,
		TotalCount: total,
		Page:       pageNum,
		Size:       size,
	}, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(s rowScanner) (model.Execution, error) {
	var e model.Execution
	var action, status, errorKind, namesJSON, commandsJSON string

	err := s.Scan(
		&e.ID, &action, &e.Kind, &e.Namespace, &namesJSON,
		&status, &commandsJSON, &e.Output,
		&e.ErrorMessage, &errorKind, &e.DurationMs, &e.CreatedAt,
	)
	if err != nil {
		return model.Execution{}, err
	}
	e.Action = model.Action(action)
	e.Status = model.OutcomeStatus(status)
	e.ErrorKind = model.ErrorKind(errorKind)
	e.Names = unmarshalStrings(namesJSON)
	e.Commands = unmarshalStrings(commandsJSON)
	return e, nil
}

func buildExecutionWhere(f outbound.ExecutionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, f.Action)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Namespace != "" {
		clauses = append(clauses, "namespace = ?")
		args = append(args, f.Namespace)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func marshalStrings(items []string) (string, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStrings(raw string) []string {
	out := []string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
