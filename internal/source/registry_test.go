package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testCatalog = `sources:
  - id: local-code
    kind: ollama
    role: code
    model: codegemma
  - id: local-general
    kind: ollama
    role: general
    model: llama3
  - id: docs
    kind: doc
    role: documentation
`

func TestLoadCatalog(t *testing.T) {
	r := NewRegistry()
	path := writeCatalog(t, t.TempDir(), testCatalog)

	if err := r.LoadCatalog(path); err != nil {
		t.Fatal(err)
	}
	if got := len(r.List()); got != 3 {
		t.Fatalf("sources = %d, want 3", got)
	}
	s, ok := r.Get("local-code")
	if !ok {
		t.Fatal("local-code not registered")
	}
	if s.Role() != RoleCode {
		t.Errorf("role = %s, want code", s.Role())
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()

	if err := r.LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: want error")
	}

	path := writeCatalog(t, dir, "sources:\n  - id: x\n    kind: teleport\n")
	if err := r.LoadCatalog(path); err == nil {
		t.Error("unknown kind: want error")
	}
}

func TestSelect(t *testing.T) {
	r := NewRegistry()
	r.Register(NewDoc("docs", RoleDocumentation, nil))
	r.Register(NewDoc("code-docs", RoleCode, nil))
	r.Register(NewDoc("general", RoleGeneral, nil))
	r.Register(NewDoc("web-specialist", RoleWeb, nil))

	tests := []struct {
		name     string
		analysis models.PromptAnalysis
		wantIDs  []string
	}{
		{
			name:     "coding prefers code then general then docs",
			analysis: models.PromptAnalysis{Type: models.PromptTypeCoding, Domain: models.DomainGeneral},
			wantIDs:  []string{"code-docs", "general", "docs"},
		},
		{
			name:     "web domain appends the web specialist",
			analysis: models.PromptAnalysis{Type: models.PromptTypeCoding, Domain: models.DomainWeb},
			wantIDs:  []string{"code-docs", "general", "docs", "web-specialist"},
		},
		{
			name:     "general fallback",
			analysis: models.PromptAnalysis{Type: models.PromptTypeGeneral, Domain: models.DomainGeneral},
			wantIDs:  []string{"general", "docs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Select(tt.analysis)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("selected %d sources, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID() != want {
					t.Errorf("source[%d] = %s, want %s", i, got[i].ID(), want)
				}
			}
		})
	}
}

func TestSelectMinimumTwo(t *testing.T) {
	r := NewRegistry()
	r.Register(NewDoc("only-docs", RoleDocumentation, nil))
	r.Register(NewDoc("explainer", RoleExplanation, nil))

	got := r.Select(models.PromptAnalysis{Type: models.PromptTypeCoding, Domain: models.DomainGeneral})
	if len(got) != 2 {
		t.Fatalf("selected %d sources, want 2", len(got))
	}
}

func TestWatchReloadsCatalog(t *testing.T) {
	r := NewRegistry()
	path := writeCatalog(t, t.TempDir(), testCatalog)
	if err := r.LoadCatalog(path); err != nil {
		t.Fatal(err)
	}
	if err := r.Watch(path, nil); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	updated := testCatalog + `  - id: extra
    kind: doc
    role: general
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Get("extra"); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("catalog change not picked up")
}

func TestDocSourceQuery(t *testing.T) {
	s := NewDoc("docs", RoleDocumentation, nil)

	rp := &models.RefinedPrompt{Refined: "Créer une fonction JavaScript simple"}
	res, err := s.Query(context.Background(), rp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.SourceStatusCollected {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", res.Confidence)
	}
	if res.Metadata["matches"].(int) != 1 {
		t.Errorf("matches = %v, want 1", res.Metadata["matches"])
	}

	rp = &models.RefinedPrompt{
		Refined:  "Something entirely unrelated",
		Analysis: models.PromptAnalysis{Type: models.PromptTypeGeneral, Complexity: models.ComplexitySimple},
	}
	res, err = s.Query(context.Background(), rp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 0.3 {
		t.Errorf("no-match confidence = %v, want 0.3", res.Confidence)
	}
}

func TestOllamaSourceQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/generate" {
			t.Errorf("path = %s", req.URL.Path)
		}
		w.Write([]byte(`{"response":"a generated answer","done":true,"eval_count":42}`))
	}))
	defer srv.Close()

	s := NewOllama(OllamaConfig{ID: "local", Role: RoleGeneral, BaseURL: srv.URL, Model: "llama3"})
	res, err := s.Query(context.Background(), &models.RefinedPrompt{Refined: "hello"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Data.(string) != "a generated answer" {
		t.Errorf("data = %v", res.Data)
	}
	if res.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", res.Confidence)
	}
}

func TestOllamaSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewOllama(OllamaConfig{ID: "local", Role: RoleGeneral, BaseURL: srv.URL})
	if _, err := s.Query(context.Background(), &models.RefinedPrompt{Refined: "hello"}, nil); err == nil {
		t.Fatal("want error on HTTP 500")
	}
}
