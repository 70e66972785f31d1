package homework

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it was detected.
type Kind uint8

const (
	// KindUnknown is any error that was not produced by this codebase's components.
	KindUnknown Kind = iota
	KindTransport
	KindParse
	KindShape
	KindDomain
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindShape:
		return "shape"
	case KindDomain:
		return "domain"
	case KindDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

var (
	ErrNotMapping    = errors.New("not a mapping")
	ErrNotList       = errors.New("homeworks is not a list")
	ErrNotInteger    = errors.New("current_date is not an integer")
	ErrMissingField  = errors.New("missing field")
	ErrUnknownStatus = errors.New("unknown homework status")
	ErrEmptyRecord   = errors.New("no homework record")
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func missing(field string) error {
	return fmt.Errorf("%w %q", ErrMissingField, field)
}
