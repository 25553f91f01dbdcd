package diag

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"animkit/internal/animation"
	logx "animkit/pkg/logx"
)

func testSnapshot() animation.Snapshot {
	return animation.Snapshot{
		Running: true,
		Rate:    16 * time.Millisecond,
		Active:  []animation.RunInfo{{Name: "intro", Started: time.Unix(0, 0), Length: time.Second, Ticks: 3, Progress: 0.25}},
		History: []animation.Result{
			{Name: "fade", Ticks: 10, Took: 160 * time.Millisecond},
			{Name: "broken", Err: errors.New("boom")},
		},
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"127.0.0.1:6060": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":6060":          false,
		"0.0.0.0:6060":   false,
		"10.0.0.5:6060":  false,
		"nonsense":       false,
	}
	for addr, want := range cases {
		if got := isLoopbackAddr(addr); got != want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), testSnapshot)
	rec := httptest.NewRecorder()
	s.handler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var v snapshotView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if !v.Running || v.Rate != "16ms" || len(v.Active) != 1 || v.Active[0].Progress != 0.25 {
		t.Fatalf("view = %+v", v)
	}
	if len(v.History) != 2 || v.History[0].Outcome != animation.OutcomeCompleted ||
		v.History[1].Outcome != animation.OutcomeFailed || v.History[1].Error != "boom" {
		t.Fatalf("history = %+v", v.History)
	}
}

func TestRunsWithoutScheduler(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	New(Config{}, logx.Nop(), nil).handler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/runs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()
	h := New(Config{}, logx.Nop(), testSnapshot).handler("s3cret")
	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "missing", target: "/healthz", want: http.StatusUnauthorized},
		{name: "query ok", target: "/healthz?token=s3cret", want: http.StatusOK},
		{name: "query wrong", target: "/healthz?token=nope", want: http.StatusUnauthorized},
		{name: "bearer ok", target: "/healthz", header: "Bearer s3cret", want: http.StatusOK},
		{name: "bearer wrong", target: "/healthz", header: "Bearer nope", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestServeAndReconfigure(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, logx.Nop(), testSnapshot)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Start(ctx)
	select {
	case <-s.Ready():
	case <-ctx.Done():
		t.Fatal("server never became ready")
	}

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	s.Reconfigure(ctx, Config{Enabled: false})
	if s.Addr() != "" {
		t.Fatalf("still serving on %s after disable", s.Addr())
	}
}
