package repair

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fatal conditions. A run that fails with one of these produces no table.
var (
	ErrDecode      = errors.New("no candidate encoding could decode the file")
	ErrEmptyInput  = errors.New("file appears empty or could not be parsed")
	ErrRowLimit    = errors.New("too many rows")
	ErrColumnLimit = errors.New("too many columns")
)

// DecodeError lists the encodings that were tried.
type DecodeError struct {
	Tried []string
}

func (e *DecodeError) Error() string {
	return ErrDecode.Error() + " (tried " + strings.Join(e.Tried, ", ") + ")"
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// LimitError reports a row or column cap violation.
type LimitError struct {
	Err    error // ErrRowLimit or ErrColumnLimit
	Limit  int
	Actual int
}

func (e *LimitError) Error() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s: %d exceeds limit of %d", e.Err.Error(), e.Actual, e.Limit)
}

func (e *LimitError) Unwrap() error { return e.Err }

// UserMessage is the sentence shown to end users.
func (e *LimitError) UserMessage() string {
	p := message.NewPrinter(language.English)
	if errors.Is(e.Err, ErrColumnLimit) {
		return p.Sprintf("Too many columns. Limit is %d columns.", e.Limit)
	}
	return p.Sprintf("Too many rows. Limit is %d data rows.", e.Limit)
}
