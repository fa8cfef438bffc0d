package handlers

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// ErrorResponse writes {success:false, message} and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, Envelope{Success: false, Message: message})
}

// WriteData writes {success:true, data}.
func WriteData(w http.ResponseWriter, statusCode int, data any) error {
	return WriteJSON(w, statusCode, Envelope{Success: true, Data: data})
}

// WriteList writes {success:true, data, count}.
func WriteList(w http.ResponseWriter, rows []map[string]any) error {
	count := len(rows)
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: rows, Count: &count})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
