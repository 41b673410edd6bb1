// Package auth maps API keys to projects. The project ID is the identity
// every guard stage keys on.
package auth

import (
	"fmt"

	"github.com/memberwise-ai/memberwise/internal/config"
)

// Project is the runtime representation of a project with its provider
// binding.
type Project struct {
	ID       string
	Provider string
}

// Auth holds the API key to project mapping.
type Auth struct {
	apiKeyToProject map[string]Project
}

// NewFromConfig builds the key map. A key assigned to two projects is a
// startup error, not a silent last-writer-wins.
func NewFromConfig(cfg *config.Config) (*Auth, error) {
	m := make(map[string]Project)
	for _, p := range cfg.Projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project with empty id in config")
		}
		proj := Project{ID: p.ID, Provider: p.Provider}
		for _, key := range p.APIKeys {
			if key == "" {
				continue
			}
			if _, exists := m[key]; exists {
				return nil, fmt.Errorf("api key %q is assigned to multiple projects", key)
			}
			m[key] = proj
		}
	}
	return &Auth{apiKeyToProject: m}, nil
}

// Lookup returns the project for an API key, if any.
func (a *Auth) Lookup(apiKey string) (Project, bool) {
	if a == nil {
		return Project{}, false
	}
	p, ok := a.apiKeyToProject[apiKey]
	return p, ok
}
