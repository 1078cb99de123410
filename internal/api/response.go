package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/regattaflow/trackcore/internal/constants"
	"github.com/regattaflow/trackcore/internal/models"
)

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	resp := models.APIResponse[T]{
		Status:    string(constants.APIStatusOk),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	resp := models.APIResponse[any]{
		Status:    string(constants.APIStatusError),
		Timestamp: time.Now().UTC(),
		Error:     message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// respondWithErrorData is respondWithError with a payload attached, for
// endpoints whose failure responses still carry a result body (a rejected
// decode keeps its envelope of errors and warnings).
func respondWithErrorData[T any](w http.ResponseWriter, statusCode int, message string, data *T) {
	resp := models.APIResponse[T]{
		Status:    string(constants.APIStatusError),
		Timestamp: time.Now().UTC(),
		Error:     message,
		Data:      data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
