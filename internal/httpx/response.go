package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope every failing endpoint returns.
// Details is optional and carries things like field-level violations.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

// JSONError writes the standard error envelope.
func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Message writes a simple {"message": ...} body, optionally merged with
// extra entity fields.
func Message(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	payload := map[string]any{"message": msg}
	for k, v := range extra {
		payload[k] = v
	}
	JSON(w, status, payload)
}
