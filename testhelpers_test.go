package dali_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rickchristie/dali"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// recordedRequest is what the fake server saw for one POST /sql.
type recordedRequest struct {
	Body   string
	Header http.Header
}

// fakeSurreal is an in-process stand-in for the database's /sql endpoint.
type fakeSurreal struct {
	URL string

	mu       sync.Mutex
	requests []recordedRequest
	respond  func(w http.ResponseWriter, r *http.Request, query string)
}

// newFakeSurreal starts a server whose /sql handler calls respond. A nil
// respond answers every query with a single empty OK statement.
func newFakeSurreal(t *testing.T, respond func(w http.ResponseWriter, r *http.Request, query string)) *fakeSurreal {
	t.Helper()
	if respond == nil {
		respond = replyJSON(okStatements("[]"))
	}
	f := &fakeSurreal{respond: respond}

	r := chi.NewRouter()
	r.Post("/sql", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Body: string(body), Header: r.Header.Clone()})
		f.mu.Unlock()
		f.respond(w, r, string(body))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.URL = srv.URL + "/sql"
	return f
}

// Requests returns a copy of every request received so far.
func (f *fakeSurreal) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// Queries returns the bodies of every request received so far.
func (f *fakeSurreal) Queries() []string {
	var out []string
	for _, r := range f.Requests() {
		out = append(out, r.Body)
	}
	return out
}

// replyJSON answers with a fixed 200 body.
func replyJSON(body string) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, _ *http.Request, _ string) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

// replyEach answers with one OK envelope per statement, using the given raw
// JSON result for each.
func replyEach(results ...string) func(http.ResponseWriter, *http.Request, string) {
	return replyJSON(okStatements(results...))
}

// okStatements builds a /sql response body with one OK envelope per result.
func okStatements(results ...string) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = `{"time":"1ms","status":"OK","result":` + r + `}`
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// errStatement builds an ERR envelope the way the server reports a failed
// statement.
func errStatement(detail string) string {
	msg, _ := json.Marshal(detail)
	return `{"time":"1ms","status":"ERR","result":` + string(msg) + `}`
}

func newTestClient(t *testing.T) *dali.Client {
	t.Helper()
	client, err := dali.NewClientBuilder().Logger(testLogger()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return client
}

func defaultConfig() dali.Config {
	return dali.Config{
		Query: dali.QueryConfig{
			DefaultTimeoutSeconds:       30,
			ListTablesTimeoutSeconds:    10,
			DescribeTableTimeoutSeconds: 10,
			MaxQueryLength:              100000,
			MaxResultLength:             100000,
		},
	}
}

func newTestBridge(t *testing.T, fake *fakeSurreal, config dali.Config, opts ...dali.Option) *dali.Bridge {
	t.Helper()
	opts = append([]dali.Option{dali.WithEndpoint(fake.URL)}, opts...)
	return dali.New(newTestClient(t), config, testLogger(), opts...)
}

func hookScript(name string) string {
	return filepath.Join("testdata", "hooks", name)
}

// expectPanic fails the test unless fn panics with a message containing want.
func expectPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, want) {
			t.Fatalf("expected panic containing %q, got %v", want, r)
		}
	}()
	fn()
}
