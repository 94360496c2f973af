package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/crtsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"symplectic": func() dynamo.Integrator { return NewSemiImplicitEuler() },
	"euler":      func() dynamo.Integrator { return NewEuler() },
}

// Default is the integrator used when a config leaves the name empty.
const Default = "symplectic"

func Get(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrConfiguration, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
