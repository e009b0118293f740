package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/trackevent/internal/domain"
	"example.com/trackevent/internal/ingest"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerDeps struct {
	Ingestor     *ingest.Ingestor
	Backend      Pinger
	Log          *zerolog.Logger
	MaxBodyBytes int64
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := d.Backend.Ping(r.Context()); err != nil {
		d.Log.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Track ---

func (d *ServerDeps) HandleTrackEvent(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)

	var sub domain.Submission
	if err := decodeSubmission(r.Body, &sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeInvalid(w, http.StatusRequestEntityTooLarge, "request body too large", "body", "too large")
			return
		}
		d.Log.Debug().Err(err).Msg("undecodable request body")
		writeInvalid(w, http.StatusBadRequest, "request body is not valid JSON", "body", "malformed json")
		return
	}

	ack, err := d.Ingestor.Handle(r.Context(), &sub)
	if err != nil {
		var f *ingest.Failure
		if !errors.As(err, &f) {
			d.Log.Error().Err(err).Msg("unclassified ingest error")
			writeInternal(w)
			return
		}
		writeFailure(w, f)
		return
	}
	writeAck(w, ack)
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeSubmission reads exactly one JSON value. Numbers inside metadata stay
// json.Number so their text is stored unchanged.
func decodeSubmission(body io.Reader, sub *domain.Submission) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(sub); err != nil {
		return err
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errTrailingData
	}
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", d.route("healthz", http.HandlerFunc(d.HandleHealthz)))
	mux.Handle("GET /readyz", d.route("readyz", http.HandlerFunc(d.HandleReadyz)))
	mux.Handle("GET /metrics", promhttp.Handler())

	var track http.Handler = http.HandlerFunc(d.HandleTrackEvent)
	track = BodyLimit(d.MaxBodyBytes)(track)
	track = RequireJSON(track)
	mux.Handle("POST /api/v1/track/event", d.route("track_event", track))

	return Recover(d.Log)(mux)
}

func (d *ServerDeps) route(name string, h http.Handler) http.Handler {
	return Instrument(name, d.Log)(Recover(d.Log)(h))
}
