// Package elastic stores event records as Elasticsearch documents.
//
// Each record is indexed with _id = event_id through the write alias, so a
// second Store with the same id replaces the document instead of failing.
// Reads go through the read alias.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"example.com/trackevent/internal/domain"
	"example.com/trackevent/internal/storage"
)

const backend = "elasticsearch"

const (
	DefaultWriteIndex = "user-events-write"
	DefaultReadIndex  = "user-events-read"
)

type Config struct {
	Addresses  []string
	Username   string
	Password   string
	WriteIndex string
	ReadIndex  string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

type Store struct {
	client     *elasticsearch.Client
	writeIndex string
	readIndex  string
}

func New(cfg Config) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	s := &Store{client: client, writeIndex: cfg.WriteIndex, readIndex: cfg.ReadIndex}
	if s.writeIndex == "" {
		s.writeIndex = DefaultWriteIndex
	}
	if s.readIndex == "" {
		s.readIndex = DefaultReadIndex
	}
	return s, nil
}

// Store indexes rec under its event_id. Indexing the same id again overwrites.
func (s *Store) Store(ctx context.Context, rec domain.Record) (domain.Record, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return domain.Record{}, &storage.Error{Backend: backend, Op: "store", Err: fmt.Errorf("encode document: %w", err)}
	}
	res, err := esapi.IndexRequest{
		Index:      s.writeIndex,
		DocumentID: rec.EventID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return domain.Record{}, &storage.Error{Backend: backend, Op: "store", Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return domain.Record{}, &storage.Error{Backend: backend, Op: "store", Err: responseError(res)}
	}
	return rec, nil
}

type getResponse struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// Fetch reads the document with the given id. A 404, whether for the document
// or the alias, means absent.
func (s *Store) Fetch(ctx context.Context, eventID string) (domain.Record, bool, error) {
	res, err := esapi.GetRequest{
		Index:      s.readIndex,
		DocumentID: eventID,
	}.Do(ctx, s.client)
	if err != nil {
		return domain.Record{}, false, &storage.Error{Backend: backend, Op: "fetch", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, res.Body)
		return domain.Record{}, false, nil
	}
	if res.IsError() {
		return domain.Record{}, false, &storage.Error{Backend: backend, Op: "fetch", Err: responseError(res)}
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return domain.Record{}, false, &storage.Error{Backend: backend, Op: "fetch", Err: fmt.Errorf("decode response: %w", err)}
	}
	if !doc.Found {
		return domain.Record{}, false, nil
	}
	var rec domain.Record
	if err := json.Unmarshal(doc.Source, &rec); err != nil {
		return domain.Record{}, false, &storage.Error{Backend: backend, Op: "fetch", Err: fmt.Errorf("decode document: %w", err)}
	}
	rec.EventTime = rec.EventTime.UTC()
	rec.ReceivedAt = rec.ReceivedAt.UTC()
	return rec, true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, s.client)
	if err != nil {
		return &storage.Error{Backend: backend, Op: "ping", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &storage.Error{Backend: backend, Op: "ping", Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	return nil
}

func responseError(res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
}

var _ storage.Store = (*Store)(nil)
