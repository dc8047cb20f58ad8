package todoapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a TransportError.
type Kind int

const (
	// KindNetwork covers connection failures, DNS errors and timeouts.
	KindNetwork Kind = iota
	// KindStatus is any non-2xx status without a more specific kind.
	KindStatus
	// KindNotFound is a 404 from the backend.
	KindNotFound
	// KindValidation is a 400 or 422 body rejection.
	KindValidation
	// KindDecode means the response body was malformed or broke the Todo contract.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

var (
	// ErrNotFound matches transport errors of KindNotFound via errors.Is.
	ErrNotFound = errors.New("todo not found")
	// ErrValidation matches transport errors of KindValidation via errors.Is.
	ErrValidation = errors.New("todo rejected by backend")
)

// TransportError reports a failed call to the todo API. Status is zero when
// no response was received.
type TransportError struct {
	Op      string
	Method  string
	Path    string
	Status  int
	Kind    Kind
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Kind != KindDecode:
		msg := fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
		if e.Message != "" {
			msg += ": " + e.Message
		}
		return msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// IsNetwork reports whether err is a transport failure with no response.
func IsNetwork(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == KindNetwork
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindStatus
	}
}
