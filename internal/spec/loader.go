package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi3"
	jsonyaml "github.com/invopop/yaml"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// SpecError is a structured error with an optional location.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL
	Cause    error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// Document is the parsed input handed to the extractor. Definitions and
// Paths stay as raw order-preserving nodes; Title, Version, and BaseURL are
// metadata lifted via kin-openapi for naming and client defaults.
type Document struct {
	Location    string
	SpecVersion int // 2 or 3
	Title       string
	Version     string
	BaseURL     string
	Definitions *yaml.Node // mapping name -> schema node, nil when absent
	Paths       *yaml.Node // mapping template -> path item, nil when absent
}

// Load reads and parses a Swagger 2.0 or OpenAPI 3.x document from a
// filesystem path or an http/https URL. The document is not validated
// beyond version detection; the generator degrades gracefully on bad
// entries instead.
func Load(ctx context.Context, input string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	// Classify input as URL or file path.
	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""

	var raw []byte
	location := input
	if isURL {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
		case "file":
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are not supported, pass a plain path", Location: input}
		default:
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", u.Scheme), Location: input}
		}
		fetched, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		raw = fetched
	} else {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
		}
		location = abs
		raw, err = os.ReadFile(abs)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
		}
	}

	return Parse(raw, location)
}

// Parse interprets already-fetched document bytes. Exposed separately so
// tests and embedding callers can skip the I/O step.
func Parse(raw []byte, location string) (*Document, error) {
	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse spec: %v", err), Location: location, Cause: err}
	}
	top := resolveNode(&root)
	if !isMapping(top) {
		return nil, &SpecError{Code: ParseError, Message: "spec: document root is not a mapping", Location: location}
	}

	doc := &Document{Location: location, SpecVersion: version}

	switch version {
	case 2:
		doc.Definitions = mappingValue(top, "definitions")
	case 3:
		doc.Definitions = mappingValue(mappingValue(top, "components"), "schemas")
	}
	doc.Paths = mappingValue(top, "paths")

	if doc.Definitions == nil && doc.Paths == nil {
		return nil, &SpecError{Code: ValidationError, Message: "spec: document has neither definitions/components nor paths, nothing to generate", Location: location}
	}

	fillMetadata(doc, raw)
	return doc, nil
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

// fillMetadata lifts title, version, and a base URL through kin-openapi.
// Metadata is best-effort; a document that kin-openapi cannot decode still
// generates, only without naming defaults.
func fillMetadata(doc *Document, raw []byte) {
	switch doc.SpecVersion {
	case 2:
		// openapi2.T carries json tags only; invopop/yaml routes YAML
		// through the json decoder so camelCase keys like basePath bind.
		var v2 openapi2.T
		if err := jsonyaml.Unmarshal(raw, &v2); err != nil {
			return
		}
		doc.Title = strings.TrimSpace(v2.Info.Title)
		doc.Version = strings.TrimSpace(v2.Info.Version)
		if host := strings.TrimSpace(v2.Host); host != "" {
			scheme := "https"
			for _, s := range v2.Schemes {
				if s == "https" {
					scheme = "https"
					break
				}
				scheme = s
			}
			doc.BaseURL = scheme + "://" + host + strings.TrimRight(v2.BasePath, "/")
		}
	case 3:
		loader := openapi3.NewLoader()
		v3, err := loader.LoadFromData(raw)
		if err != nil || v3 == nil {
			return
		}
		if v3.Info != nil {
			doc.Title = strings.TrimSpace(v3.Info.Title)
			doc.Version = strings.TrimSpace(v3.Info.Version)
		}
		for _, srv := range v3.Servers {
			if srv == nil {
				continue
			}
			if u := strings.TrimSpace(srv.URL); u != "" {
				doc.BaseURL = strings.TrimRight(u, "/")
				break
			}
		}
	}
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return io.ReadAll(resp.Body)
		}
		if err != nil {
			lastErr = err
		} else {
			defer resp.Body.Close()
			if resp.StatusCode >= 500 || resp.StatusCode == 429 {
				lastErr = fmt.Errorf("transient http error %d", resp.StatusCode)
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}
