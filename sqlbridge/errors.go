package sqlbridge

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateTableName = errors.New("duplicate table name")
	ErrNotFound           = errors.New("not found")
)

// QueryExecutionError wraps any failure reported by the SQL engine.
// Message is always a single line.
type QueryExecutionError struct {
	Statement string
	Message   string
	Err       error
}

func (e *QueryExecutionError) Error() string {
	return "query execution failed: " + e.Message
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

func queryError(statement string, err error) error {
	return &QueryExecutionError{
		Statement: statement,
		Message:   singleLine(err.Error()),
		Err:       err,
	}
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
