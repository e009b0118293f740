package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"example.com/trackevent/internal/domain"
	"example.com/trackevent/internal/metrics"
	"example.com/trackevent/internal/storage"
)

var tracer = otel.Tracer("example.com/trackevent/internal/ingest")

// Ingestor runs validate -> normalize -> store for one submission at a time.
// It holds no per-request state and is safe for concurrent use.
type Ingestor struct {
	store        storage.Store
	backend      string
	normalizer   *domain.Normalizer
	log          *zerolog.Logger
	storeTimeout time.Duration
}

// NewIngestor wires the pipeline. backend names the store in logs and metrics.
// A zero storeTimeout leaves the caller's deadline as the only bound.
func NewIngestor(store storage.Store, backend string, normalizer *domain.Normalizer, log *zerolog.Logger, storeTimeout time.Duration) *Ingestor {
	return &Ingestor{
		store:        store,
		backend:      backend,
		normalizer:   normalizer,
		log:          log,
		storeTimeout: storeTimeout,
	}
}

// Handle ingests one submission. On error the returned value is always a *Failure.
// Validation failures never reach the store; a store failure is reported once
// and not retried.
func (ig *Ingestor) Handle(ctx context.Context, sub *domain.Submission) (Acknowledgement, error) {
	ctx, span := tracer.Start(ctx, "ingest.Handle")
	defer span.End()
	metrics.EventsReceived.Inc()

	if sub == nil {
		sub = &domain.Submission{}
	}
	if fe := domain.Validate(sub); fe != nil {
		return Acknowledgement{}, ig.reject(span, fe)
	}

	rec, err := ig.normalizer.Normalize(sub)
	if err != nil {
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			return Acknowledgement{}, ig.reject(span, fe)
		}
		return Acknowledgement{}, ig.fail(span, "normalize", err)
	}
	span.SetAttributes(attribute.String("event.id", rec.EventID))

	stored, err := ig.storeRecord(ctx, rec)
	if err != nil {
		metrics.StoreFailures.WithLabelValues(ig.backend, strconv.FormatBool(errors.Is(err, storage.ErrConflict))).Inc()
		return Acknowledgement{}, ig.fail(span, "store", err)
	}
	metrics.EventsStored.WithLabelValues(ig.backend).Inc()

	ig.log.Info().
		Str("event_id", stored.EventID).
		Str("feature_id", stored.FeatureID).
		Str("backend", ig.backend).
		Msg("event tracked")

	return Acknowledgement{EventID: stored.EventID, ReceivedAt: stored.ReceivedAt}, nil
}

// storeRecord makes the single store call for a request. A panic inside the
// adapter is turned into an error so it is reported like any other failure.
func (ig *Ingestor) storeRecord(ctx context.Context, rec domain.Record) (out domain.Record, err error) {
	if ig.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ig.storeTimeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "storage.Store", trace.WithAttributes(
		attribute.String("db.system", ig.backend),
		attribute.String("event.id", rec.EventID),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s store: %v", ig.backend, r)
		}
		metrics.StoreDuration.WithLabelValues(ig.backend).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store failed")
		}
	}()
	return ig.store.Store(ctx, rec)
}

func (ig *Ingestor) reject(span trace.Span, fe *domain.FieldError) *Failure {
	metrics.EventsRejected.WithLabelValues(fe.Field, fe.Reason).Inc()
	span.SetAttributes(attribute.String("ingest.rejected_field", fe.Field))
	ig.log.Debug().Str("field", fe.Field).Str("reason", fe.Reason).Msg("submission rejected")
	return validationFailure(fe.Field, fe.Reason)
}

func (ig *Ingestor) fail(span trace.Span, stage string, err error) *Failure {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	ig.log.Error().Err(err).Str("stage", stage).Str("backend", ig.backend).Msg("event ingestion failed")
	return internalFailure(err)
}
