package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/trackevent/internal/domain"
	"example.com/trackevent/internal/storage"
)

const backend = "postgres"

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store writes one row per event into user_events. A repeated event_id
// violates ux_user_events_event_id and is reported as storage.ErrConflict.
type Store struct {
	q Querier
}

func NewStore(q Querier) *Store { return &Store{q: q} }

var columns = []string{
	"event_id",
	"user_id", "anonymous_id", "client_id", "session_id",
	"event_time", "source", "event_type",
	"feature_id", "feature_name", "feature_type", "action",
	"page_url", "page_name", "previous_page_url", "previous_page_name",
	"screen_name", "previous_screen_name",
	"device_type", "os", "os_version", "browser", "browser_version",
	"app_version", "build_number", "network_type", "locale",
	"experiments", "metadata",
	"received_at",
}

var jsonbColumns = map[string]bool{"experiments": true, "metadata": true}

var (
	insertSQL = buildInsert()
	selectSQL = buildSelect()
)

func buildInsert() string {
	ph := make([]string, len(columns))
	for i, c := range columns {
		ph[i] = fmt.Sprintf("$%d", i+1)
		if jsonbColumns[c] {
			ph[i] += "::jsonb"
		}
	}
	return "INSERT INTO user_events (" + strings.Join(columns, ",") + ") VALUES (" + strings.Join(ph, ",") + ")"
}

// buildSelect reads NULLs back as empty strings, matching how absent optional
// fields are represented on domain.Record.
func buildSelect() string {
	sel := make([]string, len(columns))
	for i, c := range columns {
		switch {
		case c == "event_time" || c == "received_at":
			sel[i] = c
		case jsonbColumns[c]:
			sel[i] = "COALESCE(" + c + "::text, '')"
		default:
			sel[i] = "COALESCE(" + c + ", '')"
		}
	}
	return "SELECT " + strings.Join(sel, ",") + " FROM user_events WHERE event_id = $1"
}

// Store inserts rec. It never updates an existing row.
func (s *Store) Store(ctx context.Context, rec domain.Record) (domain.Record, error) {
	_, err := s.q.Exec(ctx, insertSQL, insertArgs(rec)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Record{}, &storage.Error{
				Backend: backend,
				Op:      "store",
				Err:     fmt.Errorf("%w: %s (%s)", storage.ErrConflict, rec.EventID, pgErr.ConstraintName),
			}
		}
		return domain.Record{}, &storage.Error{Backend: backend, Op: "store", Err: err}
	}
	return rec, nil
}

func insertArgs(rec domain.Record) []any {
	return []any{
		rec.EventID,
		nullable(rec.UserID), nullable(rec.AnonymousID), rec.ClientID, rec.SessionID,
		rec.EventTime, rec.Source, rec.EventType,
		rec.FeatureID, nullable(rec.FeatureName), nullable(rec.FeatureType), nullable(rec.Action),
		nullable(rec.PageURL), nullable(rec.PageName), nullable(rec.PreviousPageURL), nullable(rec.PreviousPageName),
		nullable(rec.ScreenName), nullable(rec.PreviousScreenName),
		nullable(rec.DeviceType), nullable(rec.OS), nullable(rec.OSVersion), nullable(rec.Browser), nullable(rec.BrowserVersion),
		nullable(rec.AppVersion), nullable(rec.BuildNumber), nullable(rec.NetworkType), nullable(rec.Locale),
		nullableJSON(rec.Experiments), nullableJSON(rec.Metadata),
		rec.ReceivedAt,
	}
}

// Fetch loads the row with the given event_id.
func (s *Store) Fetch(ctx context.Context, eventID string) (domain.Record, bool, error) {
	var (
		rec                   domain.Record
		experiments, metadata string
	)
	err := s.q.QueryRow(ctx, selectSQL, eventID).Scan(
		&rec.EventID,
		&rec.UserID, &rec.AnonymousID, &rec.ClientID, &rec.SessionID,
		&rec.EventTime, &rec.Source, &rec.EventType,
		&rec.FeatureID, &rec.FeatureName, &rec.FeatureType, &rec.Action,
		&rec.PageURL, &rec.PageName, &rec.PreviousPageURL, &rec.PreviousPageName,
		&rec.ScreenName, &rec.PreviousScreenName,
		&rec.DeviceType, &rec.OS, &rec.OSVersion, &rec.Browser, &rec.BrowserVersion,
		&rec.AppVersion, &rec.BuildNumber, &rec.NetworkType, &rec.Locale,
		&experiments, &metadata,
		&rec.ReceivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, &storage.Error{Backend: backend, Op: "fetch", Err: err}
	}
	rec.EventTime = rec.EventTime.UTC()
	rec.ReceivedAt = rec.ReceivedAt.UTC()
	if experiments != "" {
		rec.Experiments = json.RawMessage(experiments)
	}
	if metadata != "" {
		rec.Metadata = json.RawMessage(metadata)
	}
	return rec, true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.q.Ping(ctx); err != nil {
		return &storage.Error{Backend: backend, Op: "ping", Err: err}
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableJSON(v json.RawMessage) any {
	if v == nil {
		return nil
	}
	return string(v)
}

var _ storage.Store = (*Store)(nil)
