package utils

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// errorBody mirrors models.ErrorResponse without importing models.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error writes the uniform {"code", "message"} error body.
func Error(w http.ResponseWriter, statusCode int, code, message string) {
	JSON(w, statusCode, errorBody{Code: code, Message: message})
}
