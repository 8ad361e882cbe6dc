package catalog

import (
	"errors"
	"fmt"

	"github.com/spektr-org/tabula/table"
)

var (
	// ErrNotFound is returned for names the catalog does not hold.
	ErrNotFound = table.ErrNotFound
	// ErrAlreadyExists also matches table.ErrDuplicateName.
	ErrAlreadyExists        = fmt.Errorf("already exists: %w", table.ErrDuplicateName)
	ErrInvalidParameterName = errors.New("invalid parameter name")
	// ErrSourceFailed marks a load whose connector could not fetch.
	ErrSourceFailed = errors.New("source failed")
)
