package actionstrip

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/osintools/shield"
)

func testServer(t *testing.T) (*Stripper, *httptest.Server) {
	t.Helper()
	s := testStripper(t, nil)
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(1 << 20) {
		r.Use(mw)
	}
	s.RegisterHTTP(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHTTP_Healthz(t *testing.T) {
	_, srv := testServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Fatalf("body: got %v", body)
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Error("missing X-Trace-ID")
	}
}

func TestHTTP_Selectors(t *testing.T) {
	s, srv := testServer(t)
	resp, err := http.Get(srv.URL + "/v1/selectors")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Selectors []string `json:"selectors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Selectors) != len(s.Selectors()) {
		t.Fatalf("selectors: got %d", len(body.Selectors))
	}
}

func TestHTTP_ValidateSelectors(t *testing.T) {
	_, srv := testServer(t)
	resp, err := http.Post(srv.URL+"/v1/selectors/validate", "application/json",
		strings.NewReader(`[".ok", "[aria-label=\"Like\"", "div > span"]`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var res ValidateResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Count != 3 || len(res.Invalid) != 1 || res.Invalid[0].Index != 1 {
		t.Fatalf("result: got %+v", res)
	}
}

func TestHTTP_Strip(t *testing.T) {
	_, srv := testServer(t)
	resp, err := http.Post(srv.URL+"/v1/strip?inert=1", "text/html", strings.NewReader(savedProfile))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(RemovedHeader); got != "6" {
		t.Errorf("%s: got %q, want 6", RemovedHeader, got)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "<script") || strings.Contains(out, "share_action_link") {
		t.Errorf("output not cleaned:\n%s", out)
	}
}

func TestHTTP_StripTooLarge(t *testing.T) {
	s := testStripper(t, nil)
	r := chi.NewRouter()
	r.Use(shield.MaxBody(64))
	s.RegisterHTTP(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/strip", "text/html", strings.NewReader(savedProfile))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413", resp.StatusCode)
	}
}

func TestHTTP_Pages(t *testing.T) {
	s, srv := testServer(t)
	if err := s.Start(t.Context()); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/v1/pages")
	if err != nil {
		t.Fatal(err)
	}
	var pages []PageStats
	json.NewDecoder(resp.Body).Decode(&pages)
	resp.Body.Close()
	if len(pages) != 0 {
		t.Fatalf("pages: got %v", pages)
	}

	resp, err = http.Post(srv.URL+"/v1/pages", "application/json",
		strings.NewReader(`{"url": "https://example.com/"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("open excluded page: got %d, want 422", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/pages/nope", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("close unknown page: got %d, want 404", resp.StatusCode)
	}
}
