package query

import "errors"

var (
	// ErrOwnership reports a query method invoked from a goroutine other
	// than the instance's owner. Obtain an instance for the calling
	// goroutine with ForCurrentThread instead.
	ErrOwnership = errors.New("query may only be used on its owner goroutine, use ForCurrentThread to get an instance for this goroutine")

	// ErrParamIndex reports a parameter bind outside [0, condition count).
	ErrParamIndex = errors.New("condition index out of range")

	// ErrParamCount reports a parameter bind whose value count does not
	// match the condition's operator.
	ErrParamCount = errors.New("parameter count does not match condition operator")
)
