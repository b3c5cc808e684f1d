// Package session holds the mutable state one scenario run threads through
// its checks: a cookie-bearing HTTP client plus everything captured along
// the way (access token, tenants, account IDs, issued calls). A State is
// owned by exactly one run and is not safe for concurrent use; checks
// execute strictly in sequence.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// APICall records one request issued against the system under test. The
// debug-UI scenarios compare these against the event timeline afterwards.
type APICall struct {
	Method string
	Path   string
	Status int
	At     time.Time
}

// State is the shared session threaded across sequential checks.
type State struct {
	client *http.Client

	AccessToken    string
	UserInfo       map[string]any
	Tenants        []map[string]any
	SelectedTenant map[string]any
	Accounts       []map[string]any

	calls []APICall
}

// New creates a State with a fresh cookie jar. Timeouts are applied per
// request via context, not on the client, so checks can pick their own.
func New() (*State, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &State{client: &http.Client{Jar: jar}}, nil
}

// Track appends a call record for later timeline verification.
func (s *State) Track(method, path string, status int) {
	s.calls = append(s.calls, APICall{Method: method, Path: path, Status: status, At: time.Now()})
}

// Calls returns the calls tracked so far, in issue order.
func (s *State) Calls() []APICall {
	return s.calls
}

// Response is a fully read HTTP response.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	FinalURL string
}

// ContentType returns the response content type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// JSON decodes the body into out.
func (r *Response) JSON(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Map decodes the body as a JSON object.
func (r *Response) Map() (map[string]any, error) {
	var m map[string]any
	if err := r.JSON(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Request issues a request through the session client, following redirects
// and carrying cookies, and reads the whole body.
func (s *State) Request(ctx context.Context, method, rawURL string, hdr http.Header, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, rawURL, err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", method, rawURL, err)
	}

	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     data,
		FinalURL: resp.Request.URL.String(),
	}, nil
}

// Get issues a GET.
func (s *State) Get(ctx context.Context, rawURL string, hdr http.Header) (*Response, error) {
	return s.Request(ctx, http.MethodGet, rawURL, hdr, nil)
}

// PostJSON issues a POST with a JSON body.
func (s *State) PostJSON(ctx context.Context, rawURL string, payload any, hdr http.Header) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	if hdr == nil {
		hdr = http.Header{}
	} else {
		hdr = hdr.Clone()
	}
	hdr.Set("Content-Type", "application/json")
	return s.Request(ctx, http.MethodPost, rawURL, hdr, bytes.NewReader(data))
}

// PostForm issues a POST with a URL-encoded form body.
func (s *State) PostForm(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.Request(ctx, http.MethodPost, rawURL, hdr, strings.NewReader(form.Encode()))
}

// Open issues a GET and returns the raw response with its body unread.
// The stream probes use this to inspect headers without consuming the
// event stream. The caller must close the body.
func (s *State) Open(ctx context.Context, rawURL string, hdr http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building GET %s: %w", rawURL, err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return s.client.Do(req)
}

// Bearer builds an Authorization header for the given access token.
func Bearer(token string) http.Header {
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)
	return hdr
}

// WithTenant returns a copy of hdr scoped to the given tenant.
func WithTenant(hdr http.Header, tenantID string) http.Header {
	if hdr == nil {
		hdr = http.Header{}
	} else {
		hdr = hdr.Clone()
	}
	hdr.Set("X-Tenant-ID", tenantID)
	return hdr
}
