package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// NewJSONRequest creates a new HTTP request with JSON body
func NewJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// ReadString reads the entire response body as a string
func ReadString(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ErrorResponse mirrors the API server's error body
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details,omitempty"`
		Hint    string `json:"hint,omitempty"`
	} `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ParseErrorResponse parses an error body written by the API server
func ParseErrorResponse(r io.Reader) (*ErrorResponse, error) {
	body, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	var errResp ErrorResponse
	if err := json.Unmarshal([]byte(body), &errResp); err != nil {
		errResp.Error.Message = strings.TrimSpace(body)
	}
	return &errResp, nil
}
