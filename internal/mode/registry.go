package mode

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds mode definitions and resolves inheritance chains. Built-in
// modes are registered at construction; custom modes come from Register or
// from a YAML definitions file.
type Registry struct {
	mu    sync.RWMutex
	modes map[string]Mode
}

func NewRegistry() *Registry {
	r := &Registry{modes: make(map[string]Mode)}
	for _, m := range builtins() {
		r.modes[m.Name] = m
	}
	return r
}

// Register adds or replaces a mode definition. The base chain is checked
// eagerly so a cycle is caught at configuration time, before any document
// touches the mode.
func (r *Registry) Register(m Mode) error {
	if err := m.Validate(); err != nil {
		return &ConfigError{Code: CodeInvalidMode, Detail: fmt.Sprintf("mode %q: %v", m.Name, err)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.modes[m.Name]
	r.modes[m.Name] = m
	if _, err := r.chainLocked(m.Name); err != nil {
		if existed {
			r.modes[m.Name] = prev
		} else {
			delete(r.modes, m.Name)
		}
		return err
	}
	return nil
}

// modesFile is the YAML shape of a custom mode definitions file.
type modesFile struct {
	Modes []Mode `yaml:"modes"`
}

// LoadFile reads custom mode definitions from a YAML file, expanding
// environment variables in its contents.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read modes file %s: %w", path, err)
	}
	var f modesFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return fmt.Errorf("parse modes file %s: %w", path, err)
	}
	for _, m := range f.Modes {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Names returns registered mode names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modes))
	for name := range r.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve flattens a mode's base chain into its effective rule list: the root
// mode's rules first, with same-key rules overridden in place by derived
// modes and mode-specific additions appended in declaration order.
func (r *Registry) Resolve(name string) (Resolved, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, err := r.chainLocked(name)
	if err != nil {
		return Resolved{}, err
	}

	var effective []Rule
	position := make(map[string]int)
	// chain is leaf-to-root; merge root-to-leaf.
	for i := len(chain) - 1; i >= 0; i-- {
		for _, rule := range chain[i].Rules {
			k := rule.Key()
			if pos, ok := position[k]; ok {
				effective[pos] = rule
				continue
			}
			position[k] = len(effective)
			effective = append(effective, rule)
		}
	}
	return Resolved{Name: name, Rules: effective}, nil
}

// chainLocked walks the base chain from name to its root, detecting unknown
// references and cycles. Caller holds at least a read lock.
func (r *Registry) chainLocked(name string) ([]Mode, error) {
	var chain []Mode
	seen := make(map[string]bool)
	cur := name
	for cur != "" {
		if seen[cur] {
			return nil, &ConfigError{Code: CodeModeCycle, Detail: fmt.Sprintf("mode %q participates in an inheritance cycle", cur)}
		}
		seen[cur] = true
		m, ok := r.modes[cur]
		if !ok {
			return nil, &ConfigError{Code: CodeUnknownMode, Detail: fmt.Sprintf("mode %q is not registered", cur)}
		}
		chain = append(chain, m)
		cur = m.Base
	}
	return chain, nil
}
