package vetting

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

func JSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse writes {"error": message, "success": false, "details": err}.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]any{
		"error":   message,
		"success": false,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	JSONResponse(w, statusCode, response)
}

func SuccessResponse(w http.ResponseWriter, message string, data any) {
	response := map[string]any{
		"message": message,
		"success": true,
	}
	if data != nil {
		response["data"] = data
	}
	JSONResponse(w, http.StatusOK, response)
}

func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
