package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNonMonotonic is returned when bar timestamps are not strictly increasing.
	ErrNonMonotonic = errors.New("timestamps not strictly increasing")

	// ErrInsufficientData is returned by helpers that need a minimum number of bars.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidTrade is returned by ValidateTradeParams.
	ErrInvalidTrade = errors.New("invalid trade parameters")
)

// SchemaError reports a bar with one or more required fields missing.
type SchemaError struct {
	Symbol string
	Row    int // -1 when the whole input lacks the column
	Fields []string
}

func (e *SchemaError) Error() string {
	where := fmt.Sprintf("row %d", e.Row)
	if e.Row < 0 {
		where = "header"
	}
	return fmt.Sprintf("schema: %s missing required fields [%s] (%s)",
		e.Symbol, strings.Join(e.Fields, ", "), where)
}
