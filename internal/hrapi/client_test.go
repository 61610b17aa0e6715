package hrapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phillip-england/hrconsole/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token TokenProvider) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL: srv.URL + "/api/",
		Timeout: 2 * time.Second,
		Token:   token,
		Logger:  logging.Discard(),
	})
}

func TestDoSetsHeadersAndBearerToken(t *testing.T) {
	var gotAuth, gotContentType, gotRequestID, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	}, StaticToken("secret-token"))

	if _, err := client.Do(context.Background(), http.MethodGet, "/employees/", nil, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotContentType)
	}
	if gotRequestID == "" {
		t.Fatalf("expected request id header")
	}
	if gotPath != "/api/employees/" {
		t.Fatalf("expected base url joined with path, got %q", gotPath)
	}
}

func TestDoOmitsAuthorizationWithoutToken(t *testing.T) {
	var sawAuth bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		_, _ = io.WriteString(w, `[]`)
	}, nil)

	if _, err := client.Do(context.Background(), http.MethodGet, "/employees/", nil, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if sawAuth {
		t.Fatalf("expected no Authorization header")
	}
}

func TestDoReadsTokenOnEveryRequest(t *testing.T) {
	tokens := []string{"first", ""}
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}, func(context.Context) (string, error) {
		next := tokens[0]
		tokens = tokens[1:]
		return next, nil
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Do(context.Background(), http.MethodGet, "/attendance/", nil, nil); err != nil {
			t.Fatalf("do: %v", err)
		}
	}
	if seen[0] != "Bearer first" || seen[1] != "" {
		t.Fatalf("unexpected auth headers %v", seen)
	}
}

func TestDoTokenProviderFailureIsUnexpected(t *testing.T) {
	var called bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, func(context.Context) (string, error) {
		return "", errors.New("state file unreadable")
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/employees/", nil, nil)
	if KindOf(err) != KindUnexpected {
		t.Fatalf("expected KindUnexpected, got %v", err)
	}
	if err.Error() != "state file unreadable" {
		t.Fatalf("expected cause message, got %q", err.Error())
	}
	if called {
		t.Fatalf("request must not be sent when the token cannot be read")
	}
}

func TestDoNon2xxStatusIsPreserved(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 409, 500, 503} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"success":false,"message":"nope"}`)
		}, nil)
		_, err := client.Do(context.Background(), http.MethodGet, "/employees/1/", nil, nil)
		apiErr, ok := AsError(err)
		if !ok {
			t.Fatalf("status %d: expected *Error, got %v", status, err)
		}
		if apiErr.Status != status || apiErr.Kind != KindRejected || apiErr.Message != "nope" {
			t.Fatalf("status %d: got %+v", status, apiErr)
		}
	}
}

func TestDoUnreachableNamesBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL + "/api"
	srv.Close()

	client := New(Config{BaseURL: baseURL, Timeout: time.Second, Logger: logging.Discard()})
	_, err := client.Do(context.Background(), http.MethodGet, "/employees/", nil, nil)
	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Kind != KindUnreachable {
		t.Fatalf("expected KindUnreachable, got %v", apiErr.Kind)
	}
	if !strings.Contains(apiErr.Message, baseURL) {
		t.Fatalf("expected message to contain %q, got %q", baseURL, apiErr.Message)
	}
	if apiErr.Status != 0 {
		t.Fatalf("expected no status, got %d", apiErr.Status)
	}
}

func TestDoTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: logging.Discard()})
	start := time.Now()
	_, err := client.Do(context.Background(), http.MethodGet, "/dashboard/stats/", nil, nil)
	if KindOf(err) != KindUnreachable {
		t.Fatalf("expected KindUnreachable, got %v", err)
	}
	if !strings.Contains(err.Error(), srv.URL) {
		t.Fatalf("expected base url in message, got %q", err.Error())
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
}

func TestDoTruncatedBodyKeepsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":`)
	}, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/employees/", nil, nil)
	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Kind != KindUnreachable {
		t.Fatalf("expected KindUnreachable, got %v", apiErr.Kind)
	}
	if apiErr.Status != http.StatusOK {
		t.Fatalf("expected received status 200, got %d", apiErr.Status)
	}
}

func TestDoUnencodableBodyIsUnexpected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request must not be sent")
	}, nil)
	_, err := client.Do(context.Background(), http.MethodPost, "/employees/", nil, map[string]any{"bad": make(chan int)})
	if KindOf(err) != KindUnexpected {
		t.Fatalf("expected KindUnexpected, got %v", err)
	}
}

func TestDoSingleAttempt(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)
	if _, err := client.Do(context.Background(), http.MethodGet, "/employees/", nil, nil); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestParamsEncodeKeepsOrderAndDropsBlanks(t *testing.T) {
	filter := AttendanceFilter{Status: StatusPresent, Date: "2024-01-15", Search: " "}
	if got := filter.Params().Encode(); got != "status=present&date=2024-01-15" {
		t.Fatalf("unexpected query %q", got)
	}
	full := AttendanceFilter{Status: StatusAbsent, Date: "2024-01-15", StartDate: "2024-01-01", EndDate: "2024-01-31", Search: "ada lovelace"}
	if got := full.Params().Encode(); got != "status=absent&date=2024-01-15&start_date=2024-01-01&end_date=2024-01-31&search=ada+lovelace" {
		t.Fatalf("unexpected query %q", got)
	}
}
