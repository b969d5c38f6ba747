package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrBaseURLRequired = errors.New("base url required")

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == status
}

func parseHTTPError(status int, raw []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	he := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	if err := json.Unmarshal(raw, &env); err == nil {
		he.Message = strings.TrimSpace(env.Error.Message)
		he.Code = strings.TrimSpace(env.Error.Code)
	}
	return he
}
