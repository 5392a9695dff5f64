package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Protocol names the wire format a service speaks
type Protocol string

const (
	ProtocolOpenAI    Protocol = "openai"
	ProtocolAnthropic Protocol = "anthropic"
)

// Model is a selectable variant offered by a service
type Model struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"name" yaml:"name"`
	IsDefault   bool   `json:"is_default" yaml:"default"`
}

// Service describes one LLM vendor integration
type Service struct {
	ID          string   `json:"id" yaml:"id"`
	DisplayName string   `json:"name" yaml:"name"`
	Icon        string   `json:"icon" yaml:"icon"`
	Protocol    Protocol `json:"-" yaml:"protocol"`
	Models      []Model  `json:"models" yaml:"models"`
}

// DefaultModel returns the model marked default, or the first declared model
func (s Service) DefaultModel() Model {
	for _, m := range s.Models {
		if m.IsDefault {
			return m
		}
	}
	return s.Models[0]
}

// Model looks up a model of the service by id
func (s Service) Model(id string) (Model, bool) {
	for _, m := range s.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Registry is the fixed catalog of services. It is never mutated after construction.
type Registry struct {
	services []Service
	byID     map[string]int
}

// NewRegistry builds a registry from services in declaration order.
// Duplicate ids, services without models and services with more than one
// default model are rejected.
func NewRegistry(services []Service) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(services))}
	for _, svc := range services {
		id := strings.TrimSpace(svc.ID)
		if id == "" {
			return nil, fmt.Errorf("register service: id is required")
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("register service %q: duplicate id", id)
		}
		if len(svc.Models) == 0 {
			return nil, fmt.Errorf("register service %q: no models", id)
		}
		if n := countDefaults(svc); n > 1 {
			return nil, fmt.Errorf("register service %q: %d default models", id, n)
		}
		if svc.Protocol == "" {
			svc.Protocol = ProtocolOpenAI
		}
		svc.ID = id
		svc.Models = append([]Model(nil), svc.Models...)
		r.byID[id] = len(r.services)
		r.services = append(r.services, svc)
	}
	return r, nil
}

// Validate is the strict startup check: every service marks exactly one default model
func (r *Registry) Validate() error {
	for _, svc := range r.services {
		if n := countDefaults(svc); n != 1 {
			return fmt.Errorf("service %q must mark exactly one default model, found %d", svc.ID, n)
		}
	}
	return nil
}

func countDefaults(svc Service) int {
	n := 0
	for _, m := range svc.Models {
		if m.IsDefault {
			n++
		}
	}
	return n
}

// Services returns a copy of the catalog in declaration order
func (r *Registry) Services() []Service {
	out := make([]Service, len(r.services))
	for i, svc := range r.services {
		svc.Models = append([]Model(nil), svc.Models...)
		out[i] = svc
	}
	return out
}

// Service looks up a service by id
func (r *Registry) Service(id string) (Service, error) {
	i, ok := r.byID[id]
	if !ok {
		return Service{}, fmt.Errorf("%w: %q", ErrUnknownService, id)
	}
	return r.services[i], nil
}

// ResolveModel picks the model for a generation: modelID when the service
// offers it, the service default otherwise.
func (r *Registry) ResolveModel(serviceID, modelID string) (Model, error) {
	svc, err := r.Service(serviceID)
	if err != nil {
		return Model{}, err
	}
	if modelID != "" {
		if m, ok := svc.Model(modelID); ok {
			return m, nil
		}
	}
	return svc.DefaultModel(), nil
}

type catalogFile struct {
	Services []Service `yaml:"services"`
}

// LoadCatalogFile reads a YAML service catalog and validates it strictly
func LoadCatalogFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	r, err := NewRegistry(cf.Services)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
