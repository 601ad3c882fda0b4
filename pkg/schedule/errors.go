package schedule

import (
	"errors"
	"fmt"
)

var errEmptySignal = errors.New("entry has no signal code")

type parseError struct {
	field string
	value string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("unparsable %s field: %q", e.field, e.value)
}
