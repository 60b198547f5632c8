package handlers

import (
	"encoding/json"
	"net/http"
)

// Error codes the client branches on. Everything else is a plain message.
const (
	CodeEmailAlreadyExists = "email-already-exists"
	CodeInvalidOTP         = "invalid-otp"
)

type apiError struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, apiError{Success: false, Message: message})
}

func respondWithErrorCode(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, apiError{Success: false, Message: message, ErrorCode: code})
}
