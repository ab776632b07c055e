package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// Error codes.
const (
	codeBadRequest    = "BAD_REQUEST"
	codeNotFound      = "NOT_FOUND"
	codeTooLarge      = "PAYLOAD_TOO_LARGE"
	codeInternal      = "INTERNAL_ERROR"
	codeUnavailable   = "UNAVAILABLE"
)

// errEmptyBody is reported when a request carries no body.
var errEmptyBody = errors.New("request body is empty")

// APIError is the body of every failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, errorResponse{Error: APIError{Code: code, Message: message}})
}

// respondBodyError maps a body read or decode failure to 413 or 400.
func respondBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "request body exceeds the upload limit")
		return
	}
	respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
}

// readBody reads the whole request body up to the server limit. An empty
// body yields errEmptyBody.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

// decodeJSON decodes the request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("invalid JSON: " + err.Error())
	}
	return nil
}
