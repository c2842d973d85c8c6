package domain

import (
	"errors"
	"fmt"
)

// Sentinels for the three ways a page fetch can fail. Match them with errors.Is.
var (
	ErrNetwork = errors.New("network error")
	ErrDecode  = errors.New("decode error")
	ErrAPI     = errors.New("api error")

	ErrInvalidRequest = errors.New("invalid page request")
)

// ErrorKind classifies a FetchError.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindDecode
	KindAPI
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindDecode:
		return ErrDecode
	case KindAPI:
		return ErrAPI
	default:
		return nil
	}
}

// FetchError describes a failed page fetch. It is scoped to one page and
// never leaves session state modified.
type FetchError struct {
	Kind    ErrorKind
	Query   string
	Page    PageKey
	Code    string // API error code, e.g. "apiKeyInvalid"
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %q page %d: %s", e.Query, e.Page, e.Kind)
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNetwork) and friends match on Kind.
func (e *FetchError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf reports the classification of err, or 0 when it is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
