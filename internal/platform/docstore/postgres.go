package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// pgCollection keeps each document as a JSONB value in a table of the
// shape (id text primary key, doc jsonb, created_at timestamptz).
type pgCollection[T Document] struct {
	pool  *pgxpool.Pool
	table string
}

func (c *pgCollection[T]) Insert(ctx context.Context, doc *T) error {
	id := (*doc).DocumentID()
	if id.IsZero() {
		return errNoID
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, c.table)
	if _, err := c.pool.Exec(ctx, q, id.Hex(), b); err != nil {
		return pgErr(err)
	}
	return nil
}

func (c *pgCollection[T]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	q := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, c.table)
	var raw []byte
	if err := c.pool.QueryRow(ctx, q, id.Hex()).Scan(&raw); err != nil {
		return nil, pgErr(err)
	}
	return decodeJSON[T](raw)
}

func (c *pgCollection[T]) FindOne(ctx context.Context, f Filter) (*T, error) {
	items, err := c.Find(ctx, f, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (c *pgCollection[T]) Find(ctx context.Context, f Filter, opts FindOptions) ([]*T, error) {
	where, args := pgWhere(f)
	order := "created_at, id"
	if opts.SortField != "" {
		args = append(args, opts.SortField)
		dir := "ASC"
		if opts.SortOrder == Descending {
			dir = "DESC"
		}
		order = fmt.Sprintf("doc -> $%d::text %s, created_at, id", len(args), dir)
	}

	q := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY %s`, c.table, where, order)
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decodeJSON[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err)
	}
	return out, nil
}

func (c *pgCollection[T]) Count(ctx context.Context, f Filter) (int, error) {
	where, args := pgWhere(f)
	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, c.table, where)
	var n int
	if err := c.pool.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, pgErr(err)
	}
	return n, nil
}

func (c *pgCollection[T]) Replace(ctx context.Context, doc *T) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	q := fmt.Sprintf(`UPDATE %s SET doc = $2::jsonb WHERE id = $1`, c.table)
	tag, err := c.pool.Exec(ctx, q, (*doc).DocumentID().Hex(), b)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *pgCollection[T]) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*T, error) {
	return c.UpdateWhere(ctx, id, nil, fields)
}

func (c *pgCollection[T]) UpdateWhere(ctx context.Context, id primitive.ObjectID, where Filter, fields map[string]any) (*T, error) {
	patch := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "_id" {
			patch[k] = v
		}
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	q, args := pgUpdateWhere(c.table, where, id.Hex(), b)
	var raw []byte
	if err := c.pool.QueryRow(ctx, q, args...).Scan(&raw); err != nil {
		return nil, pgErr(err)
	}
	return decodeJSON[T](raw)
}

// pgUpdateWhere builds the statement merging patch into the row with id,
// guarded by the conditions of where.
func pgUpdateWhere(table string, where Filter, id string, patch []byte) (string, []any) {
	clause, args := pgWhere(where)
	args = append(args, id, patch)
	q := fmt.Sprintf(`UPDATE %s SET doc = doc || $%d::jsonb WHERE id = $%d AND (%s) RETURNING doc`,
		table, len(args), len(args)-1, clause)
	return q, args
}

func (c *pgCollection[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.table)
	tag, err := c.pool.Exec(ctx, q, id.Hex())
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// pgWhere renders a Filter as a WHERE clause over the doc column. Field
// names are passed as parameters, never spliced into the SQL.
func pgWhere(f Filter) (string, []any) {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var (
		clauses []string
		args    []any
		eq      = map[string]any{}
	)
	for _, k := range fields {
		cond, ok := f[k].(Cond)
		if !ok {
			eq[k] = f[k]
			continue
		}
		args = append(args, k)
		field := len(args)
		switch cond.Op {
		case OpNe:
			args = append(args, jsonText(cond.Value))
			clauses = append(clauses, fmt.Sprintf("(doc ->> $%d::text) IS DISTINCT FROM $%d::text", field, len(args)))
		case OpLt, OpGt:
			cmp := "<"
			if cond.Op == OpGt {
				cmp = ">"
			}
			cast, val := pgCast(cond.Value)
			args = append(args, val)
			clauses = append(clauses, fmt.Sprintf("(doc ->> $%d::text)%s %s $%d", field, cast, cmp, len(args)))
		}
	}
	if len(eq) > 0 {
		b, _ := json.Marshal(eq)
		args = append(args, b)
		clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", len(args)))
	}
	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

func pgCast(v any) (string, any) {
	switch val := v.(type) {
	case time.Time:
		return "::timestamptz", val
	case int, int32, int64, float32, float64:
		return "::numeric", val
	default:
		return "", jsonText(v)
	}
}

// jsonText is the value the ->> operator yields for v.
func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		return s
	}
	return string(b)
}

func decodeJSON[T any](raw []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func pgErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pe.ConstraintName)
	}
	return err
}
