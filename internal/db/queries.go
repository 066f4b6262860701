package db

import (
	"context"
	"database/sql"
)

// Queries is the hand-written query surface for the grit object/reference
// schema. It plays the same role the teacher's generated sqlc.Queries type
// played for its mail schema: a thin, swappable-by-transaction wrapper
// around a handful of prepared statements, passed around as the generic
// parameter of TransactionExecutor and BatchedQuerier.
//
// The grit schema is small enough (two tables) that hand-writing this
// surface is clearer than standing up a sqlc code-generation step for it.
type Queries struct {
	db dbtx
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting Queries run either
// against the pool directly or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New wraps a dbtx (connection pool or transaction) in a Queries.
func New(db dbtx) *Queries {
	return &Queries{db: db}
}

// PutObject inserts an object body keyed by its content id. Puts are
// idempotent: an existing id is left untouched (INSERT OR IGNORE), matching
// the content-addressed invariant that identical ids always carry identical
// bytes.
func (q *Queries) PutObject(ctx context.Context, id, body []byte) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO objects (id, body) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, body)
	return err
}

// GetObject returns the encoded body for an object id, or sql.ErrNoRows if
// absent.
func (q *Queries) GetObject(ctx context.Context, id []byte) ([]byte, error) {
	var body []byte
	row := q.db.QueryRowContext(
		ctx, `SELECT body FROM objects WHERE id = ?`, id,
	)
	if err := row.Scan(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// HasObject reports whether an object id is already stored.
func (q *Queries) HasObject(ctx context.Context, id []byte) (bool, error) {
	var exists int
	row := q.db.QueryRowContext(
		ctx, `SELECT 1 FROM objects WHERE id = ?`, id,
	)
	err := row.Scan(&exists)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// SetRef creates or overwrites a named reference to point at target.
func (q *Queries) SetRef(ctx context.Context, name string, target []byte) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO refs (name, target) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET target = excluded.target
	`, name, target)
	return err
}

// GetRef returns the id a reference currently points to, or sql.ErrNoRows if
// the reference does not exist.
func (q *Queries) GetRef(ctx context.Context, name string) ([]byte, error) {
	var target []byte
	row := q.db.QueryRowContext(
		ctx, `SELECT target FROM refs WHERE name = ?`, name,
	)
	if err := row.Scan(&target); err != nil {
		return nil, err
	}
	return target, nil
}

// RefRow is a single reference name/target pair.
type RefRow struct {
	Name   string
	Target []byte
}

// GetRefs returns every reference whose name starts with prefix (empty
// prefix returns all references).
func (q *Queries) GetRefs(ctx context.Context, prefix string) ([]RefRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT name, target FROM refs
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name
	`, likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefRow
	for rows.Next() {
		var r RefRow
		if err := rows.Scan(&r.Name, &r.Target); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRef removes a named reference. Absence is not an error.
func (q *Queries) DeleteRef(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM refs WHERE name = ?`, name)
	return err
}

// likePrefix escapes LIKE metacharacters in prefix and appends the wildcard.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
