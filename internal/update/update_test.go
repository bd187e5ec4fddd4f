package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
)

// ///////////////////////////////////////////////
// Version Comparison
// ///////////////////////////////////////////////

func TestParseSemver(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{"1.2.3", []int{1, 2, 3}},
		{"v1.2.3", []int{1, 2, 3}},
		{"0.0.0-dev", []int{0, 0, 0}},
		{"1.0.0-beta+build123", []int{1, 0, 0}},
		{"10.20.30", []int{10, 20, 30}},
		{"1.2.3+metadata", []int{1, 2, 3}},
		{"", nil},
		{"1.2", nil},
		{"v", nil},
		{"1.2.x", nil},
		{"1..3", nil},
		{"1.2.3.4", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseSemver(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseSemver(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSemverLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.2.3", "1.2.3", false},
		{"0.9.9", "1.0.0", true},
		{"2.0.0", "1.9.9", false},
		{"1.0.0", "1.0.1", true},
		{"v0.1.0", "0.2.0", true},
		{"0.1.0-dev", "0.1.0", true},
		{"0.1.0", "0.1.0-dev", false},
		{"1.0.0-alpha", "1.0.0-beta", false},
		{"invalid", "1.0.0", false},
		{"1.0.0", "", false},
	}
	for _, tt := range tests {
		if got := semverLess(tt.a, tt.b); got != tt.want {
			t.Errorf("semverLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Checker
// ///////////////////////////////////////////////

func manifestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		manifest string
		want     Result
	}{
		{"newer available", "1.0.0", `{".": "1.2.0"}`, Result{"1.0.0", "1.2.0", true}},
		{"same version", "1.0.0", `{".": "1.0.0"}`, Result{"1.0.0", "1.0.0", false}},
		{"running ahead", "2.0.0", `{".": "1.2.0"}`, Result{"2.0.0", "1.2.0", false}},
		{"dev build", "0.3.0-dev", `{".": "0.3.0"}`, Result{"0.3.0-dev", "0.3.0", true}},
		{"missing key", "1.0.0", `{"tools": "9.9.9"}`, Result{"1.0.0", "", false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := manifestServer(t, http.StatusOK, tt.manifest)
			got, err := NewCheckerURL(srv.URL).Check(context.Background(), tt.current)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLatestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, ""},
		{"server error", http.StatusInternalServerError, ""},
		{"invalid json", http.StatusOK, "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := manifestServer(t, tt.status, tt.body)
			if _, err := NewCheckerURL(srv.URL).Latest(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			if n := hits.Load(); n != 1 {
				t.Errorf("requests = %d, want exactly 1", n)
			}
		})
	}
}

func TestLatestWithoutManifest(t *testing.T) {
	_, err := NewCheckerURL("").Latest(context.Background())
	if !errors.Is(err, ErrNoManifest) {
		t.Fatalf("err = %v, want ErrNoManifest", err)
	}
}

func TestLatestHonoursContext(t *testing.T) {
	srv, _ := manifestServer(t, http.StatusOK, `{".": "1.0.0"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCheckerURL(srv.URL).Latest(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
