package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"funcagent/internal/domain"
)

func TestCalculator(t *testing.T) {
	calc := NewCalculatorTool()
	tests := []struct {
		expression string
		want       string
		failed     bool
	}{
		{expression: "(100 - 37) * 2 + 15", want: "Result: (100 - 37) * 2 + 15 = 141"},
		{expression: "(15 + 27) * 3", want: "Result: (15 + 27) * 3 = 126"},
		{expression: "10 / 4", want: "Result: 10 / 4 = 2.5"},
		{expression: "", failed: true},
		{expression: "2 +", failed: true},
		{expression: `"text"`, failed: true},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			out := calc.Execute(context.Background(), domain.Args{"expression": tt.expression})
			if tt.failed {
				if !out.IsFailed() {
					t.Fatalf("expected failure, got %+v", out)
				}
				return
			}
			if out.Kind != domain.OutcomeOK || out.Output != tt.want {
				t.Fatalf("expected ok(%q), got %+v", tt.want, out)
			}
		})
	}
}

func TestSearch_MockResults(t *testing.T) {
	out := NewSearchTool().Execute(context.Background(), domain.Args{"query": "Spring Boot"})
	if out.Kind != domain.OutcomeOK {
		t.Fatalf("expected ok, got %+v", out)
	}
	if strings.Count(out.Output, "Spring Boot") != 4 {
		t.Fatalf("query should appear in every result line:\n%s", out.Output)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	out := NewSearchTool().Execute(context.Background(), domain.Args{"query": "  "})
	if !out.IsFailed() {
		t.Fatalf("expected failure for blank query, got %+v", out)
	}
}

func TestTerminate(t *testing.T) {
	tests := []struct {
		name string
		args domain.Args
		want string
	}{
		{name: "answer", args: domain.Args{"answer": "42"}, want: "42"},
		{name: "result fallback", args: domain.Args{"result": "done"}, want: "done"},
		{name: "lone argument", args: domain.Args{"summary": "all good"}, want: "all good"},
		{name: "no arguments", args: domain.Args{}, want: defaultFinalAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewTerminateTool().Execute(context.Background(), tt.args)
			if !out.IsTerminal() || out.Output != tt.want {
				t.Fatalf("expected terminal(%q), got %+v", tt.want, out)
			}
		})
	}
}

func TestFetch_ConvertsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Title</h1><p>Hello <strong>world</strong></p></body></html>"))
	}))
	defer srv.Close()

	out := NewFetchTool(0).Execute(context.Background(), domain.Args{"url": srv.URL})
	if out.Kind != domain.OutcomeOK {
		t.Fatalf("expected ok, got %+v", out)
	}
	if !strings.Contains(out.Output, "# Title") || !strings.Contains(out.Output, "**world**") {
		t.Fatalf("expected markdown output, got %q", out.Output)
	}
}

func TestFetch_RejectsScheme(t *testing.T) {
	out := NewFetchTool(0).Execute(context.Background(), domain.Args{"url": "file:///etc/passwd"})
	if !out.IsFailed() {
		t.Fatalf("expected failure for file scheme, got %+v", out)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	out := NewFetchTool(0).Execute(context.Background(), domain.Args{"url": srv.URL})
	if !out.IsFailed() || !strings.Contains(out.Output, "404") {
		t.Fatalf("expected 404 failure, got %+v", out)
	}
}

func TestFetch_TruncatesOnRuneBoundary(t *testing.T) {
	// Two leading bytes put the byte limit inside a 3-byte rune.
	body := "xx" + strings.Repeat("世", fetchMaxOutput)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	out := NewFetchTool(0).Execute(context.Background(), domain.Args{"url": srv.URL})
	if out.Kind != domain.OutcomeOK {
		t.Fatalf("expected ok, got %+v", out)
	}
	if !utf8.ValidString(out.Output) {
		t.Fatal("truncated output is not valid UTF-8")
	}
	if !strings.HasSuffix(out.Output, "... (truncated)") {
		t.Fatalf("expected truncation marker, got suffix %q", out.Output[len(out.Output)-20:])
	}
}

func TestTruncateOutput(t *testing.T) {
	if got := truncateOutput("héllo", 10); got != "héllo" {
		t.Errorf("short input changed: %q", got)
	}
	// "é" occupies bytes 1-2; a limit of 2 must not keep half of it.
	if got := truncateOutput("héllo", 2); got != "h\n... (truncated)" {
		t.Errorf("got %q", got)
	}
}
