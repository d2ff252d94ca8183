package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"gopkg.in/yaml.v3"
)

// Registry holds the resources known to one engine instance
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*Resource
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]*Resource)}
}

// Register validates and adds r. Names must be unique.
func (reg *Registry) Register(r *Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.resources[r.Name]; exists {
		return crudErrors.NewConfigurationError("resource %s registered twice", r.Name)
	}
	reg.resources[r.Name] = r
	return nil
}

// MustRegister is Register for wiring code that cannot continue on error
func (reg *Registry) MustRegister(r *Resource) {
	if err := reg.Register(r); err != nil {
		panic(err)
	}
}

// Lookup returns the resource registered under name
func (reg *Registry) Lookup(name string) (*Resource, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.resources[name]
	return r, ok
}

// Names returns the registered resource names sorted
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.resources))
	for name := range reg.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type registryFile struct {
	Resources []*Resource `yaml:"resources"`
}

// LoadRegistry builds a registry from a YAML document with a top-level "resources" list
func LoadRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse resources: %w", err)
	}
	reg := NewRegistry()
	for _, r := range file.Resources {
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadRegistryFile reads and parses the registry at path
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resources file: %w", err)
	}
	return LoadRegistry(data)
}
