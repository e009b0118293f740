package transporthttp

import (
	"encoding/json"
	"net/http"
	"time"

	"example.com/trackevent/internal/ingest"
)

const (
	statusOK    = "ok"
	statusError = "error"

	panicMessage = "An unexpected error occurred. Please try again later."
)

type trackResponse struct {
	Status     string `json:"status"`
	EventID    string `json:"event_id"`
	ReceivedAt string `json:"received_at"`
}

type errorDetails struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// errorResponse is the envelope for every non-2xx answer.
type errorResponse struct {
	Status    string        `json:"status"`
	ErrorCode string        `json:"error_code"`
	Message   string        `json:"message"`
	Details   *errorDetails `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAck(w http.ResponseWriter, ack ingest.Acknowledgement) {
	writeJSON(w, http.StatusOK, trackResponse{
		Status:     statusOK,
		EventID:    ack.EventID,
		ReceivedAt: ack.ReceivedAt.UTC().Format(time.RFC3339Nano),
	})
}

// writeFailure renders a Failure. Internal causes stay in the logs.
func writeFailure(w http.ResponseWriter, f *ingest.Failure) {
	resp := errorResponse{Status: statusError, ErrorCode: f.Code(), Message: f.Message()}
	status := http.StatusInternalServerError
	if f.Kind == ingest.KindValidation {
		status = http.StatusBadRequest
		resp.Details = &errorDetails{Field: f.Field, Reason: f.Reason}
	}
	writeJSON(w, status, resp)
}

func writeInvalid(w http.ResponseWriter, status int, message, field, reason string) {
	writeJSON(w, status, errorResponse{
		Status:    statusError,
		ErrorCode: ingest.CodeInvalidPayload,
		Message:   message,
		Details:   &errorDetails{Field: field, Reason: reason},
	})
}

func writeInternal(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Status:    statusError,
		ErrorCode: ingest.CodeInternalError,
		Message:   panicMessage,
	})
}
