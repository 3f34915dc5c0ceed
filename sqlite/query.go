package sqlite

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"exprmap/expr"
	"exprmap/query"
)

var boolType = reflect.TypeFor[bool]()

// sqlQuery accumulates operations over one table as lambdas on the row type.
// Lambdas added after Select are composed with the projection, so every
// predicate and key is expressed over source rows.
type sqlQuery struct {
	db    *DB
	table string
	src   *schema
	elem  reflect.Type
	proj  *expr.Lambda

	where  []*expr.Lambda
	orders [][]query.SortKey // most recent group first
	sorted bool              // last operation was OrderBy
	offset int
	limit  int // -1 for none
	err    error
}

// From returns a query over the rows of table, stored as T.
func From[T any](d *DB, table string) query.Queryable {
	q := &sqlQuery{db: d, table: table, elem: reflect.TypeFor[T](), limit: -1}
	q.src, q.err = schemaOf(q.elem)

	return q
}

func (q *sqlQuery) clone() *sqlQuery {
	out := *q
	out.where = slices.Clip(q.where)
	out.orders = slices.Clone(q.orders)
	out.sorted = false

	return &out
}

func (q *sqlQuery) fail(err error) *sqlQuery {
	if q.err == nil {
		q.err = err
	}

	return q
}

func (q *sqlQuery) paged() bool {
	return q.offset > 0 || q.limit >= 0
}

// onRows rewrites a lambda over the element type into one over source rows.
func (q *sqlQuery) onRows(l *expr.Lambda) *expr.Lambda {
	if q.proj == nil {
		return l
	}

	return expr.NewLambda(q.proj.Param, expr.Inline(expr.Substitute(l.Body, l.Param, q.proj.Body)))
}

func (q *sqlQuery) ElemType() reflect.Type { return q.elem }

func (q *sqlQuery) Where(pred *expr.Lambda) query.Queryable {
	out := q.clone()
	if err := query.CheckLambda(pred, q.elem, boolType); err != nil {
		return out.fail(err)
	}

	if q.paged() {
		return out.fail(fmt.Errorf("%w: filter after Skip or Take", ErrUntranslatable))
	}

	out.where = append(out.where, q.onRows(pred))

	return out
}

func (q *sqlQuery) OrderBy(key *expr.Lambda, desc bool) query.Queryable {
	out := q.clone()
	if err := query.CheckLambda(key, q.elem, nil); err != nil {
		return out.fail(err)
	}

	if q.paged() {
		return out.fail(fmt.Errorf("%w: ordering after Skip or Take", ErrUntranslatable))
	}

	sk := query.SortKey{Key: q.onRows(key), Desc: desc}

	// a later sort is stable over the earlier ones, so its keys come first
	if q.sorted {
		out.orders[0] = append(slices.Clip(out.orders[0]), sk)
	} else {
		out.orders = slices.Insert(out.orders, 0, []query.SortKey{sk})
	}

	out.sorted = true

	return out
}

func (q *sqlQuery) Skip(n int) query.Queryable {
	out := q.clone()

	n = max(n, 0)
	out.offset += n

	if out.limit >= 0 {
		out.limit = max(out.limit-n, 0)
	}

	return out
}

func (q *sqlQuery) Take(n int) query.Queryable {
	out := q.clone()

	n = max(n, 0)
	if out.limit < 0 || n < out.limit {
		out.limit = n
	}

	return out
}

func (q *sqlQuery) Select(proj *expr.Lambda) query.Queryable {
	out := q.clone()
	if err := query.CheckLambda(proj, q.elem, nil); err != nil {
		return out.fail(err)
	}

	out.proj = q.onRows(proj)
	out.elem = proj.Out()

	return out
}

// statement renders the query as one SELECT and its parameters.
func (q *sqlQuery) statement() (string, []any, []target, error) {
	if q.err != nil {
		return "", nil, nil, q.err
	}

	tr := &translator{src: q.src}

	var targets []target

	if q.proj == nil {
		for _, c := range q.src.columns {
			targets = append(targets, target{sql: quote(c.name), alias: c.name, index: c.index})
		}
	} else {
		var err error

		targets, err = tr.flatten(expr.Inline(q.proj.Body), q.elem, nil, "")
		if err != nil {
			return "", nil, nil, err
		}
	}

	cols := make([]string, len(targets))
	for i, t := range targets {
		cols[i] = t.sql + " AS " + quote(t.alias)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), quote(q.table))

	for i, w := range q.where {
		cond, err := tr.render(expr.Inline(w.Body))
		if err != nil {
			return "", nil, nil, err
		}

		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}

		sb.WriteString(cond)
	}

	// rowid keeps insertion order as the final tiebreaker
	var keys []string

	for _, group := range q.orders {
		for _, k := range group {
			s, err := tr.render(expr.Inline(k.Key.Body))
			if err != nil {
				return "", nil, nil, err
			}

			if k.Desc {
				s += " DESC"
			}

			keys = append(keys, s)
		}
	}

	keys = append(keys, "rowid")
	sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))

	if q.paged() {
		sb.WriteString(" LIMIT ? OFFSET ?")
		tr.args = append(tr.args, q.limit, q.offset)
	}

	return sb.String(), tr.args, targets, nil
}

// Render returns the SQL statement and parameters q would execute. It fails
// when q is not a query of this package.
func Render(q query.Queryable) (string, []any, error) {
	sq, ok := q.(*sqlQuery)
	if !ok {
		return "", nil, fmt.Errorf("%w: %T is not a SQLite query", ErrUntranslatable, q)
	}

	stmt, args, _, err := sq.statement()

	return stmt, args, err
}

func (q *sqlQuery) Execute(ctx context.Context) (any, error) {
	stmt, args, targets, err := q.statement()
	if err != nil {
		return nil, err
	}

	q.db.logger.Debug("sqlite query", "table", q.table, "sql", stmt, "args", len(args))

	rows, err := q.db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table, err)
	}
	defer rows.Close()

	out := reflect.MakeSlice(reflect.SliceOf(q.elem), 0, 0)
	dest := make([]any, len(targets))

	for rows.Next() {
		v := reflect.New(q.elem).Elem()
		for i, t := range targets {
			dest[i] = expr.FieldByIndexAlloc(v, t.index).Addr().Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.elem, err)
		}

		out = reflect.Append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.table, err)
	}

	return out.Interface(), nil
}

func (q *sqlQuery) Count(ctx context.Context) (int, error) {
	stmt, args, _, err := q.statement()
	if err != nil {
		return 0, err
	}

	var n int
	if err := q.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+stmt+")", args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}

	return n, nil
}
