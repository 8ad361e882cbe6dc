package steps

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds a custom action from its parameters.
type Factory func(params map[string]string, bctx BuildContext) (Action, error)

// Registry holds action kinds beyond the built-in ones. Populate it at
// startup; kinds are matched case-insensitively.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var builtinKinds = []string{KindIdentity, KindConstant, KindTemplate, KindSQL, KindCatalogLoad, KindCatalogTransform}

// Register adds a factory under kind. Built-in kinds and kinds already
// registered are rejected.
func (r *Registry) Register(kind string, f Factory) error {
	k := strings.ToLower(kind)
	for _, b := range builtinKinds {
		if k == b {
			return fmt.Errorf("action %q is built in: %w", kind, ErrDuplicateRegistration)
		}
	}
	if _, exists := r.factories[k]; exists {
		return fmt.Errorf("action %q: %w", kind, ErrDuplicateRegistration)
	}
	r.factories[k] = f
	return nil
}

func (r *Registry) lookup(kind string) (Factory, bool) {
	f, ok := r.factories[strings.ToLower(kind)]
	return f, ok
}

// Kinds lists built-in and registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := append([]string(nil), builtinKinds...)
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
