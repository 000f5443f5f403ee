// Package contentstore implements the content-store HTTP client of spec
// §4.3 (component C3): fetching and writing the authoritative HTML
// representation of a document. The document name is itself the target
// URL, per spec §6 ("GET <name>", "PUT <name>").
package contentstore

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// EmptyHTML is the canonical empty document returned in place of a 404,
// per spec §4.3/§6.
const EmptyHTML = "<main></main>"

const initiatorHeader = "X-DA-Initiator"
const initiatorValue = "collab"

// Client is the content-store HTTP client. It never retries and its Put
// never returns an error — both match spec §4.3's "Never throws; returns
// the triple" policy.
type Client struct {
	http *http.Client
}

// New builds a content-store client. A bounded timeout guards against a
// hung upstream wedging a document actor; it is transport hygiene, not
// the per-operation cancellation policy spec §5 deliberately leaves out.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// Get fetches the current HTML for name, per spec §4.3.
func (c *Client) Get(ctx context.Context, name, auth string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
	if err != nil {
		return "", fmt.Errorf("build get request: %w", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read get body: %w", err)
		}
		return string(body), nil
	case http.StatusNotFound:
		return EmptyHTML, nil
	default:
		return "", &UpstreamUnavailableError{Status: resp.StatusCode}
	}
}

// PutResult is the outcome triple of spec §4.3's put operation.
type PutResult struct {
	OK         bool
	Status     int
	StatusText string
}

// Put writes html as the new content for name, aggregating every session's
// auth token into the Authorization header, per spec §4.3.
func (c *Client) Put(ctx context.Context, name, html string, sessionAuths []string) PutResult {
	body, contentType, err := encodeMultipart(html)
	if err != nil {
		return PutResult{OK: false, StatusText: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, name, strings.NewReader(body))
	if err != nil {
		return PutResult{OK: false, StatusText: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(initiatorHeader, initiatorValue)
	if auths := dedup(sessionAuths); len(auths) > 0 {
		req.Header.Set("Authorization", strings.Join(auths, ","))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PutResult{OK: false, StatusText: err.Error()}
	}
	defer resp.Body.Close()

	return PutResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:     resp.StatusCode,
		StatusText: resp.Status,
	}
}

func encodeMultipart(html string) (body, contentType string, err error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="data"`)
	header.Set("Content-Type", "text/html")
	part, err := w.CreatePart(header)
	if err != nil {
		return "", "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write([]byte(html)); err != nil {
		return "", "", fmt.Errorf("write multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.String(), w.FormDataContentType(), nil
}

// dedup preserves first-seen order while dropping duplicates and blanks,
// per spec §4.3 "deduplicated list of all session auth tokens".
func dedup(auths []string) []string {
	seen := make(map[string]struct{}, len(auths))
	out := make([]string, 0, len(auths))
	for _, a := range auths {
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
