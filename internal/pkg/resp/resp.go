/*
Package resp provides unified helpers for writing JSON HTTP responses.

It standardizes the response envelope (code, message, data) used by the health
endpoint, the development token endpoint, and pre-upgrade WebSocket rejections.
*/
package resp

import (
	"net/http"

	"github.com/goccy/go-json"

	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/logx"
)

// JSONResponse is the standard envelope for every JSON HTTP response.
type JSONResponse struct {
	// Code is 0 on success, or the business error code on failure.
	Code int `json:"code"`

	// Message is a short human-readable outcome description.
	Message string `json:"message"`

	// Data carries the response payload, if any.
	Data any `json:"data,omitempty"`
}

// RespondJSON serializes the given response and writes it with the given HTTP status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, res JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	response, err := json.Marshal(res)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	res := JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
		Data:    nil,
	}
	RespondJSON(w, r, customErr.Status, res)
}
