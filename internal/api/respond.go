package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"musicplayer/internal/apperr"
	"musicplayer/internal/logging"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = apperr.Validation("parse_error", "malformed JSON request body")
	errNotFound      = apperr.NotFound("not_found", "not found")
)

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders classified errors as-is. Anything else is logged and
// hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logging.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
		return
	}
	writeJSON(w, apperr.HTTPStatus(e), errorBody{Error: e.Message, Code: e.Code, Fields: e.Fields})
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errMalformedBody
}

// decodeAndValidate decodes the body and runs the struct's validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return validateStruct(dst)
}

// pathID returns the {id} URL parameter. Malformed ids cannot name a row, so
// they are reported as not found.
func pathID(r *http.Request) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", errNotFound
	}
	return id.String(), nil
}
