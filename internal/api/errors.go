package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errorFromResponse turns a non-2xx response into an *Error, preferring the
// human-readable detail string the backend puts in the body.
func errorFromResponse(resp *http.Response) *Error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    strings.ToLower(http.StatusText(resp.StatusCode)),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		apiErr.Message = detail.Detail
		return apiErr
	}

	if msg := strings.TrimSpace(string(body)); msg != "" && msg[0] != '{' {
		apiErr.Message = msg
	}

	return apiErr
}
