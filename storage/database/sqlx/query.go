// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
)

// where accumulates AND-ed conditions written with `?` placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// addIn adds `col IN (?)` expanded over values. values must not be empty.
func (w *where) addIn(col string, values interface{}) error {
	q, args, err := sqlx.In(col+" IN (?)", values)
	if err != nil {
		return errors.Wrap(err, "expanding "+col+" IN")
	}
	w.add(q, args...)
	return nil
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// build rebinds the query for the driver of exec.
func build(exec core.DBExecutor, query string) string {
	return exec.Rebind(query)
}

// values returns `(?, ?, ...), (?, ?, ...)` for rows of n columns.
func values(rows, n int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
	return strings.TrimSuffix(strings.Repeat(row+", ", rows), ", ")
}
