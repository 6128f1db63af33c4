package exsat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoEndpoint is returned when every chain endpoint is unavailable.
var ErrNoEndpoint = errors.New("no chain endpoint available")

// APIError is an error reported by the chain API or the signing relay,
// as opposed to a transport failure.
type APIError struct {
	StatusCode int
	Code       int
	Name       string
	What       string
	Details    []string
}

func (e *APIError) Error() string {
	msg := e.What
	if len(e.Details) > 0 {
		msg = strings.Join(e.Details, "; ")
	}
	if e.Name == "" {
		return fmt.Sprintf("chain api status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("chain api %s (%d): %s", e.Name, e.Code, msg)
}

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		What    string `json:"what"`
		Details []struct {
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func (b apiErrorBody) toError(status int) *APIError {
	e := &APIError{StatusCode: status, What: b.Message}
	if b.Error != nil {
		e.Code = b.Error.Code
		e.Name = b.Error.Name
		if b.Error.What != "" {
			e.What = b.Error.What
		}
		for _, d := range b.Error.Details {
			e.Details = append(e.Details, d.Message)
		}
	}
	return e
}
