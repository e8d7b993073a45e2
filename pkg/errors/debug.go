package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Report is the loggable breakdown of an error: the typed code when
// present, the full unwrap chain, and Postgres driver detail when a
// database error sits anywhere in that chain.
type Report struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump flattens err into a Report for structured logging. Both the pgx
// and lib/pq drivers are recognized.
func Dump(err error) Report {
	var report Report
	if err == nil {
		return report
	}

	report.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		report.Code = typed.Code()
	}
	for cause := err; cause != nil; cause = errors.Unwrap(cause) {
		report.Chain = append(report.Chain, fmt.Sprintf("%T: %v", cause, cause))
	}
	report.attachDriverDetail(err)
	return report
}

func (r *Report) attachDriverDetail(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		r.PGCode = pgxErr.Code
		r.PGConstraint = pgxErr.ConstraintName
		r.PGTable = pgxErr.TableName
		r.PGColumn = pgxErr.ColumnName
		r.PGDetail = pgxErr.Detail
		r.PGMessage = pgxErr.Message
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		r.PGCode = string(pqErr.Code)
		r.PGConstraint = pqErr.Constraint
		r.PGTable = pqErr.Table
		r.PGColumn = pqErr.Column
		r.PGDetail = pqErr.Detail
		r.PGMessage = pqErr.Message
	}
}
