package json

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code. The body is
// encoded before any header is written, so an encoding failure still
// produces a clean error response instead of a torn body.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
