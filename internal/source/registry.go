package source

import (
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// CatalogEntry is one source definition in the YAML catalog.
type CatalogEntry struct {
	// ID is the unique source identifier.
	ID string `yaml:"id"`
	// Kind selects the implementation: anthropic, ollama or doc.
	Kind string `yaml:"kind"`
	// Role is the source role (general, code, documentation, ...).
	Role string `yaml:"role"`
	// Model names the model for inference-backed kinds.
	Model string `yaml:"model,omitempty"`
	// URL overrides the server address for the ollama kind.
	URL string `yaml:"url,omitempty"`
	// Bedrock routes the anthropic kind through AWS Bedrock.
	Bedrock bool `yaml:"bedrock,omitempty"`
	// Region is the AWS region when bedrock is set.
	Region string `yaml:"region,omitempty"`
	// Confidence overrides the default trust score.
	Confidence float64 `yaml:"confidence,omitempty"`
}

type catalogFile struct {
	Sources []CatalogEntry `yaml:"sources"`
}

// rolePreference maps a prompt type to the source roles queried for it,
// in priority order.
var rolePreference = map[models.PromptType][]string{
	models.PromptTypeCoding:      {RoleCode, RoleGeneral, RoleDocumentation},
	models.PromptTypeExplanation: {RoleExplanation, RoleGeneral},
	models.PromptTypeGeneration:  {RoleGeneral, RoleCode},
	models.PromptTypeAnalysis:    {RoleGeneral, RoleDocumentation},
	models.PromptTypeGeneral:     {RoleGeneral, RoleDocumentation},
}

// Registry owns the named sources and answers selection queries. A
// catalog file can be watched for changes and reloaded in place.
type Registry struct {
	mu      sync.RWMutex
	ordered []Source
	byID    map[string]Source

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]Source{}}
}

// Register adds or replaces a source by ID.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[s.ID()]; exists {
		for i, old := range r.ordered {
			if old.ID() == s.ID() {
				r.ordered[i] = s
				break
			}
		}
	} else {
		r.ordered = append(r.ordered, s)
	}
	r.byID[s.ID()] = s
}

// Get returns a source by ID.
func (r *Registry) Get(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// List returns the registered sources in registration order.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// LoadCatalog replaces the registry contents from a YAML catalog file.
func (r *Registry) LoadCatalog(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	sources := make([]Source, 0, len(file.Sources))
	for _, e := range file.Sources {
		s, err := buildSource(e)
		if err != nil {
			return fmt.Errorf("catalog entry %q: %w", e.ID, err)
		}
		sources = append(sources, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordered = sources
	r.byID = make(map[string]Source, len(sources))
	for _, s := range sources {
		r.byID[s.ID()] = s
	}
	return nil
}

func buildSource(e CatalogEntry) (Source, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	role := e.Role
	if role == "" {
		role = RoleGeneral
	}
	switch e.Kind {
	case "anthropic":
		return NewAnthropic(AnthropicConfig{
			ID:            e.ID,
			Role:          role,
			Model:         anthropic.Model(e.Model),
			UseAWSBedrock: e.Bedrock,
			AWSRegion:     e.Region,
			Confidence:    e.Confidence,
		})
	case "ollama":
		return NewOllama(OllamaConfig{
			ID:         e.ID,
			Role:       role,
			BaseURL:    e.URL,
			Model:      e.Model,
			Confidence: e.Confidence,
		}), nil
	case "doc":
		return NewDoc(e.ID, role, nil), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", e.Kind)
	}
}

// Watch reloads the catalog whenever the file changes. Stop with Close.
func (r *Registry) Watch(path string, onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch catalog: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch catalog: %w", err)
	}

	r.mu.Lock()
	r.watcher = watcher
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					if err := r.LoadCatalog(path); err != nil && onErr != nil {
						onErr(err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return nil
}

// Close stops the catalog watcher, if one is running.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		close(r.done)
		r.watcher.Close()
		r.watcher = nil
	}
}

// Select returns the sources to query for an analyzed prompt: all
// sources matching the preferred roles for the prompt type, with a web
// specialist appended for web-domain requests. At least two sources are
// returned whenever the registry holds that many, padding with whatever
// else is registered.
func (r *Registry) Select(a models.PromptAnalysis) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := rolePreference[a.Type]
	if roles == nil {
		roles = rolePreference[models.PromptTypeGeneral]
	}
	if a.Domain == models.DomainWeb {
		roles = append(append([]string{}, roles...), RoleWeb)
	}

	seen := map[string]bool{}
	var out []Source
	for _, role := range roles {
		for _, s := range r.ordered {
			if s.Role() == role && !seen[s.ID()] {
				seen[s.ID()] = true
				out = append(out, s)
			}
		}
	}
	for _, s := range r.ordered {
		if len(out) >= 2 {
			break
		}
		if !seen[s.ID()] {
			seen[s.ID()] = true
			out = append(out, s)
		}
	}
	return out
}
