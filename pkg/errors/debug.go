package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error for the request log. It never reaches clients.
type ErrorDump struct {
	TopMessage string         `json:"top_message"`
	Code       Code           `json:"code,omitempty"`
	Details    any            `json:"details,omitempty"`
	Chain      []string       `json:"chain,omitempty"`

	DBDriver     string `json:"db_driver,omitempty"`
	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBColumn     string `json:"db_column,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`
	DBMessage    string `json:"db_message,omitempty"`
}

// sqliteConstraintPrefixes match the messages the sqlite driver returns for
// constraint failures, e.g. "UNIQUE constraint failed: books.isbn".
var sqliteConstraintPrefixes = []string{
	"UNIQUE constraint failed: ",
	"FOREIGN KEY constraint failed",
	"CHECK constraint failed: ",
	"NOT NULL constraint failed: ",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Details = te.Details()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.DBDriver = "pgx"
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.DBDriver = "pq"
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return d
	}

	msg := err.Error()
	for _, prefix := range sqliteConstraintPrefixes {
		idx := strings.Index(msg, prefix)
		if idx < 0 {
			continue
		}
		d.DBDriver = "sqlite"
		d.DBMessage = msg[idx:]
		target := strings.TrimSpace(msg[idx+len(prefix):])
		if table, column, ok := strings.Cut(target, "."); ok && !strings.Contains(table, " ") {
			d.DBTable = table
			d.DBColumn = column
		}
		break
	}
	return d
}
