package guard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGuard_Check(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		wantErr bool
	}{
		{"clean text passes", "refine the prompt and distribute it to local models", false},
		{"empty text passes", "", false},
		{"bare identifier is contamination", "wire the pipeline through langchain for retrieval", true},
		{"uppercase identifier is contamination", "use CrewAI agents for distribution", true},
		{"identifier inside prohibition statement is tolerated", "agents must not depend on langchain integrations", false},
		{"french prohibition statement is tolerated", "le moteur ne doit pas utiliser crewai", false},
		{"prohibition elsewhere does not cover a second bare use", "plugins are forbidden here. configure autogen for the gather stage and continue with the remaining setup steps because the distribution layer needs an execution backend for every request", true},
		{"multiple identifiers all scanned", "flowise pipelines are great", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := g.Check(tt.subject)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check(%q) error = %v, wantErr %v", tt.subject, err, tt.wantErr)
			}
			if err != nil {
				var pv *PolicyViolationError
				if !errors.As(err, &pv) {
					t.Errorf("Check error type = %T, want *PolicyViolationError", err)
				}
			}
		})
	}
}

func TestGuard_CheckPayload(t *testing.T) {
	g := New()

	clean := map[string]any{"prompt": "explain goroutines", "confidence": 0.9}
	if err := g.CheckPayload(clean); err != nil {
		t.Errorf("CheckPayload(clean) = %v, want nil", err)
	}

	dirty := map[string]any{"config": map[string]string{"framework": "crewai"}}
	if err := g.CheckPayload(dirty); err == nil {
		t.Error("CheckPayload(dirty) = nil, want policy violation")
	}

	if err := g.CheckPayload(nil); err != nil {
		t.Errorf("CheckPayload(nil) = %v, want nil", err)
	}
}

func TestGuard_AddIdentifier(t *testing.T) {
	g := New()
	if err := g.Check("talk to metaflow orchestrators"); err != nil {
		t.Fatalf("unexpected violation before AddIdentifier: %v", err)
	}

	g.AddIdentifier("MetaFlow")
	if err := g.Check("talk to metaflow orchestrators"); err == nil {
		t.Error("Check after AddIdentifier = nil, want policy violation")
	}
}

func TestGuard_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mosaic.yaml")
	content := "compliance:\n  deny_list:\n    - haystack\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	g := New()
	if err := g.LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if err := g.Check("route through haystack nodes"); err == nil {
		t.Error("Check after LoadConfig = nil, want policy violation")
	}
}

func TestPolicyViolationError_Message(t *testing.T) {
	g := New()
	err := g.Check("the answer came from langchain according to logs")
	if err == nil {
		t.Fatal("expected violation")
	}

	var pv *PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("error type = %T", err)
	}
	if pv.Identifier != "langchain" {
		t.Errorf("Identifier = %q, want %q", pv.Identifier, "langchain")
	}
	if pv.Excerpt == "" {
		t.Error("Excerpt is empty, want surrounding text")
	}
}
