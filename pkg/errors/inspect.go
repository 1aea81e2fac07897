package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Report is the log-oriented view of an error chain, including any Postgres
// diagnostics found along it.
type Report struct {
	Message string
	Code    Code
	Chain   []string

	PGCode       string
	PGConstraint string
	PGTable      string
	PGColumn     string
	PGDetail     string
	PGMessage    string
}

// Inspect walks err and collects a Report. A nil error yields the zero Report.
func Inspect(err error) Report {
	if err == nil {
		return Report{}
	}
	r := Report{Message: err.Error()}
	if typed := As(err); typed != nil {
		r.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		r.Chain = append(r.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		r.PGCode, r.PGConstraint = pgxErr.Code, pgxErr.ConstraintName
		r.PGTable, r.PGColumn = pgxErr.TableName, pgxErr.ColumnName
		r.PGDetail, r.PGMessage = pgxErr.Detail, pgxErr.Message
	case errors.As(err, &pqErr):
		r.PGCode, r.PGConstraint = string(pqErr.Code), pqErr.Constraint
		r.PGTable, r.PGColumn = pqErr.Table, pqErr.Column
		r.PGDetail, r.PGMessage = pqErr.Detail, pqErr.Message
	}
	return r
}

// Fields returns the non-empty parts of the report keyed for structured logs.
func (r Report) Fields() map[string]any {
	fields := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("error", r.Message)
	put("error_code", string(r.Code))
	if len(r.Chain) > 1 {
		fields["error_chain"] = r.Chain
	}
	put("pg_code", r.PGCode)
	put("pg_constraint", r.PGConstraint)
	put("pg_table", r.PGTable)
	put("pg_column", r.PGColumn)
	put("pg_detail", r.PGDetail)
	put("pg_message", r.PGMessage)
	return fields
}
