// Package rest implements the persistence service over a remote JSON
// resource API. A Service maps the backend contract onto the conventional
// routes: GET /{resource}/{id} fetches, GET /{resource} lists, POST creates,
// PUT updates, DELETE removes. A 404 on fetch becomes model.ErrNotFound, so
// lookups through a bound type behave exactly as they do on local stores.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/logging"
	"github.com/mesh-intelligence/shelf/pkg/model"
)

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("invalid rest config")

// Config describes the remote resource a Service talks to.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com/v1".
	BaseURL string

	// Resource is the collection path segment, e.g. "users".
	Resource string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Validate checks the configuration for problems New would trip over.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: base URL: %v", ErrInvalidConfig, err)
	}
	if c.Resource == "" {
		return fmt.Errorf("%w: resource is required", ErrInvalidConfig)
	}
	if strings.Contains(c.Resource, "/") {
		return fmt.Errorf("%w: resource %q must be a single path segment", ErrInvalidConfig, c.Resource)
	}
	return nil
}

// Service is a persistence service backed by a remote JSON resource.
type Service struct {
	base     string
	resource string
	client   *http.Client
	log      *slog.Logger
}

var _ model.Service = (*Service)(nil)

// New creates a service for the resource described by cfg.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		resource: cfg.Resource,
		client:   &http.Client{Timeout: timeout},
		log:      logging.Nop(),
	}, nil
}

// SetLogger sets the operational logger for the service. A nil log discards.
func (s *Service) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	} else {
		s.log = logging.Nop()
	}
}

// Save creates the record over POST when the entity has no identity,
// assigning the id from the response body, and updates it over PUT
// otherwise.
func (s *Service) Save(ctx context.Context, e *model.Entity) error {
	fields := e.Fields()
	delete(fields, model.FieldID)

	id, ok := e.ID()
	if !ok {
		resp, err := s.do(ctx, http.MethodPost, s.listURL(), fields)
		if err != nil {
			return fmt.Errorf("creating %s: %w", s.resource, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return s.statusError("create", resp)
		}
		created, err := decodeRecord(resp.Body)
		if err != nil {
			return fmt.Errorf("creating %s: %w", s.resource, err)
		}
		newID, ok := recordID(created)
		if !ok {
			return fmt.Errorf("creating %s: response carries no id", s.resource)
		}
		e.SetID(newID)
		return nil
	}

	resp, err := s.do(ctx, http.MethodPut, s.itemURL(id), fields)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", s.resource, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("updating %s %d: %w", s.resource, id, model.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return s.statusError("update", resp)
	}
	return nil
}

// Delete removes the record matching the entity's identity. An entity
// without identity, or a 404 from the remote, is a silent no-op.
func (s *Service) Delete(ctx context.Context, e *model.Entity) error {
	id, ok := e.ID()
	if !ok {
		return nil
	}

	resp, err := s.do(ctx, http.MethodDelete, s.itemURL(id), nil)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", s.resource, id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return s.statusError("delete", resp)
}

// Fetch returns the field map of the record with the given id. A 404
// becomes model.ErrNotFound.
func (s *Service) Fetch(ctx context.Context, id int64) (map[string]any, error) {
	resp, err := s.do(ctx, http.MethodGet, s.itemURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %d: %w", s.resource, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, model.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError("fetch", resp)
	}

	fields, err := decodeRecord(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %d: %w", s.resource, id, err)
	}
	if _, ok := fields[model.FieldID]; !ok {
		fields[model.FieldID] = id
	}
	return fields, nil
}

// All returns the field maps of every record in the collection.
func (s *Service) All(ctx context.Context) ([]map[string]any, error) {
	return s.list(ctx, s.listURL())
}

// Where returns the field maps of records whose field equals value. The
// predicate travels as a query parameter; values serialize with fmt, a nil
// value as the literal "null".
func (s *Service) Where(ctx context.Context, field string, value any) ([]map[string]any, error) {
	query := url.Values{}
	query.Set(field, queryValue(value))
	return s.list(ctx, s.listURL()+"?"+query.Encode())
}

// Exists reports whether a record with the given id is present, without
// decoding its body.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	resp, err := s.do(ctx, http.MethodGet, s.itemURL(id), nil)
	if err != nil {
		return false, fmt.Errorf("checking %s %d: %w", s.resource, id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, s.statusError("check", resp)
}

func (s *Service) list(ctx context.Context, u string) ([]map[string]any, error) {
	resp, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError("list", resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	records := []map[string]any{}
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", s.resource, err)
	}
	return records, nil
}

// do builds and runs one request. A non-nil body marshals to JSON.
func (s *Service) do(ctx context.Context, method, u string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	s.log.Debug("request", "method", method, "url", u)
	return s.client.Do(req)
}

// statusError reads a bounded slice of the response body into the error so
// remote diagnostics survive.
func (s *Service) statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s %s failed (status %d)", op, s.resource, resp.StatusCode)
	}
	return fmt.Errorf("%s %s failed (status %d): %s", op, s.resource, resp.StatusCode, msg)
}

func (s *Service) listURL() string {
	return s.base + "/" + s.resource
}

func (s *Service) itemURL(id int64) string {
	return s.listURL() + "/" + strconv.FormatInt(id, 10)
}

// decodeRecord reads one JSON object with numbers preserved as json.Number.
func decodeRecord(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return fields, nil
}

// recordID pulls the identity from a decoded record.
func recordID(fields map[string]any) (int64, bool) {
	num, ok := fields[model.FieldID].(json.Number)
	if !ok {
		return 0, false
	}
	id, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

// queryValue serializes a predicate value for the query string.
func queryValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
