package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Condition is the sky condition ordinal published by the server.
type Condition int

const (
	// MinCondition is the lowest valid ordinal.
	MinCondition Condition = 0

	// MaxCondition is the highest valid ordinal.
	MaxCondition Condition = 3

	// DefaultCondition is the value published before any update is accepted.
	DefaultCondition Condition = 1
)

// Valid reports whether c lies in [MinCondition, MaxCondition].
func (c Condition) Valid() bool {
	return c >= MinCondition && c <= MaxCondition
}

// String returns the decimal form used on the wire.
func (c Condition) String() string {
	return strconv.Itoa(int(c))
}

// ParseCondition validates one protocol line.
// Surrounding whitespace is ignored and an optional sign is accepted.
// Integers that overflow int are reported as ErrRange, not ErrParse.
func ParseCondition(text string) (Condition, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q is outside [%d..%d]", ErrRange, text, MinCondition, MaxCondition)
		}
		return 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	c := Condition(n)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d is outside [%d..%d]", ErrRange, n, MinCondition, MaxCondition)
	}
	return c, nil
}
