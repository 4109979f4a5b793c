package display

import "errors"

var (
	ErrClosed = errors.New("presenter closed")
)
