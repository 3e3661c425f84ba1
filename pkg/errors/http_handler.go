package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError writes an AppError (or a wrapped internal error) as a JSON
// response using the error's own HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())

	response := ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}

	_ = json.NewEncoder(w).Encode(response)
}
