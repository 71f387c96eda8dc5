package service

import (
	"errors"
	"fmt"
	"sort"
)

var ErrSolverNotFound = errors.New("solver not found")

// Registry maps a challenge name to its solver. It is filled once by
// NewRegistry and only read afterwards, so it is safe to share between
// concurrent duels without locking.
type Registry struct {
	solvers map[string]Solver
}

func NewRegistry(solvers ...Solver) (*Registry, error) {
	r := &Registry{solvers: make(map[string]Solver, len(solvers))}
	for _, s := range solvers {
		name := s.Name()
		if name == "" {
			return nil, errors.New("registry: solver with empty name")
		}
		if _, dup := r.solvers[name]; dup {
			return nil, fmt.Errorf("registry: duplicate solver %q", name)
		}
		r.solvers[name] = s
	}
	return r, nil
}

func (r *Registry) Get(name string) (Solver, error) {
	s, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSolverNotFound, name)
	}
	return s, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
