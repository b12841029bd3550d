package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned for any non-2xx response from the feed API
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	// Detail is the "detail" field of the error body, if the API sent one
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d", e.StatusCode)
}

func newStatusError(method, path string, resp *http.Response) *StatusError {
	se := &StatusError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       path,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(data) == 0 {
		return se
	}

	var body struct {
		Detail interface{} `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil {
		switch d := body.Detail.(type) {
		case string:
			se.Detail = d
		case nil:
		default:
			if raw, err := json.Marshal(d); err == nil {
				se.Detail = string(raw)
			}
		}
	}
	return se
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a StatusError
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
