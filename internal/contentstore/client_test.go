package contentstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "tok" {
			t.Errorf("expected auth header tok, got %q", got)
		}
		io.WriteString(w, "<main><p>hi</p></main>")
	}))
	defer srv.Close()

	c := New()
	html, err := c.Get(context.Background(), srv.URL, "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if html != "<main><p>hi</p></main>" {
		t.Fatalf("unexpected body: %q", html)
	}
}

func TestGet404ReturnsEmptyDoc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New()
	html, err := c.Get(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if html != EmptyHTML {
		t.Fatalf("expected canonical empty doc, got %q", html)
	}
}

func TestGetOtherStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Get(context.Background(), srv.URL, "")
	if err == nil {
		t.Fatalf("expected UpstreamUnavailableError")
	}
	var uerr *UpstreamUnavailableError
	if !asUpstreamUnavailable(err, &uerr) || uerr.Status != 500 {
		t.Fatalf("expected status 500, got %v", err)
	}
}

func asUpstreamUnavailable(err error, target **UpstreamUnavailableError) bool {
	if e, ok := err.(*UpstreamUnavailableError); ok {
		*target = e
		return true
	}
	return false
}

func TestPutAggregatesAndDedupsAuth(t *testing.T) {
	var gotAuth, gotInitiator, gotContentType string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotInitiator = r.Header.Get("X-DA-Initiator")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New()
	result := c.Put(context.Background(), srv.URL, "<main><p>hi</p></main>", []string{"a", "b", "a", ""})
	if !result.OK || result.Status != http.StatusNoContent {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gotAuth != "a,b" {
		t.Fatalf("expected deduped auth a,b, got %q", gotAuth)
	}
	if gotInitiator != "collab" {
		t.Fatalf("expected X-DA-Initiator collab, got %q", gotInitiator)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Fatalf("expected multipart content type, got %q", gotContentType)
	}
	if !strings.Contains(gotBody, "<main><p>hi</p></main>") {
		t.Fatalf("expected body to carry html, got %q", gotBody)
	}
}

func TestPutNeverErrors(t *testing.T) {
	c := New()
	result := c.Put(context.Background(), "http://127.0.0.1:0/unreachable", "<main></main>", nil)
	if result.OK {
		t.Fatalf("expected failure result for unreachable host")
	}
	if result.StatusText == "" {
		t.Fatalf("expected a status text describing the failure")
	}
}
