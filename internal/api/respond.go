package api

import (
	"encoding/json"
	"net/http"

	"notification-service/internal/common/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps an error onto the wire: AppErrors keep their code,
// kind-derived status and details; anything else becomes a 500.
func writeError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)
	writeJSON(w, errors.HTTPStatus(appErr.Kind), appErr)
}
