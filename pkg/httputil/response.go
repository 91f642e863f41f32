// Package httputil provides HTTP handler utilities for the response envelope,
// account error mapping, JSON decoding and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/usercenter/pkg/auth"
)

// Response codes carried in the envelope
const (
	CodeSuccess            = 0
	CodeParamsError        = 40000
	CodeInvalidCredentials = 40001
	CodeNotLogin           = 40100
	CodeNoAuth             = 40101
	CodeForbidden          = 40300
	CodeNotFound           = 40400
	CodeConflict           = 40900
	CodeTooManyRequests    = 42900
	CodeSystemError        = 50000
	CodeOperationError     = 50001
)

// Response is the envelope of every API response
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful envelope (200 OK) around data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Response{
		Code:    CodeSuccess,
		Data:    data,
		Message: "ok",
	})
}

// WriteErrorCode writes an error envelope with an explicit status and code
func WriteErrorCode(w http.ResponseWriter, status, code int, message string) {
	_ = WriteJSON(w, status, Response{
		Code:    code,
		Message: message,
	})
}

type errorMapping struct {
	status int
	code   int
}

var accountErrors = map[auth.ErrorKind]errorMapping{
	auth.KindInvalidArgument:       {http.StatusBadRequest, CodeParamsError},
	auth.KindConflict:              {http.StatusConflict, CodeConflict},
	auth.KindNotAuthenticated:      {http.StatusUnauthorized, CodeNotLogin},
	auth.KindForbidden:             {http.StatusForbidden, CodeForbidden},
	auth.KindNotFound:              {http.StatusNotFound, CodeNotFound},
	auth.KindInvalidCredentials:    {http.StatusUnauthorized, CodeInvalidCredentials},
	auth.KindSystem:                {http.StatusInternalServerError, CodeSystemError},
	auth.KindOperationNotPermitted: {http.StatusBadRequest, CodeOperationError},
}

// StatusFor returns the HTTP status and envelope code of an error.
// Errors that are not account errors map to a system error.
func StatusFor(err error) (status, code int) {
	m, ok := accountErrors[auth.KindOf(err)]
	if !ok {
		m = accountErrors[auth.KindSystem]
	}
	return m.status, m.code
}

// WriteAccountError writes the envelope for err. Only the caller-safe message is
// returned; the wrapped cause never leaves the process.
func WriteAccountError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	WriteErrorCode(w, status, code, auth.MessageOf(err))
}

// WriteBadRequest writes a parameter error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusBadRequest, CodeParamsError, message)
}

// WriteUnauthorized writes a not-logged-in error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusUnauthorized, CodeNotLogin, message)
}

// WriteNoAuth writes a missing-permission error (403)
func WriteNoAuth(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusForbidden, CodeNoAuth, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusTooManyRequests, CodeTooManyRequests, message)
}

// WriteInternalError writes a system error (500) without exposing err
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorCode(w, http.StatusInternalServerError, CodeSystemError, "system error")
}
