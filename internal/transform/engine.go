// Package transform converts raw source records into normalized entities
// via named, memoized, inter-dependent field computations.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"catalog-crawler/internal/catalog"
)

// Configuration errors reported by the engine. Both indicate a registry
// bug, not a data problem.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrFieldCycle   = errors.New("field dependency cycle")
)

// FieldFunc is a pure computation producing one attribute of a normalized
// entity. It may reference the already-resolved value of another field of
// the same record through the Resolution.
type FieldFunc func(rec catalog.RawRecord, fields *Resolution) (any, error)

// FieldSpec is a named field computation.
type FieldSpec struct {
	Name    string
	Compute FieldFunc
}

// Registry is the fixed, ordered set of field specs for one entity kind.
// It is built once at startup and safe for concurrent read access.
type Registry struct {
	kind  catalog.Kind
	order []string
	specs map[string]FieldSpec
}

// NewRegistry builds and validates a Registry. Empty or duplicate field
// names are rejected immediately.
func NewRegistry(kind catalog.Kind, specs []FieldSpec) (*Registry, error) {
	reg := &Registry{
		kind:  kind,
		order: make([]string, 0, len(specs)),
		specs: make(map[string]FieldSpec, len(specs)),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("field name is required for kind %q", kind)
		}
		if spec.Compute == nil {
			return nil, fmt.Errorf("field %q of kind %q has no computation", spec.Name, kind)
		}
		if _, exists := reg.specs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate field name %q for kind %q", spec.Name, kind)
		}
		reg.specs[spec.Name] = spec
		reg.order = append(reg.order, spec.Name)
	}
	return reg, nil
}

// Kind returns the entity kind the registry describes.
func (r *Registry) Kind() catalog.Kind { return r.kind }

// Engine evaluates field registries against raw records.
type Engine struct {
	registries map[catalog.Kind]*Registry
}

// NewEngine constructs an Engine over the given registries.
func NewEngine(registries ...*Registry) (*Engine, error) {
	e := &Engine{registries: make(map[catalog.Kind]*Registry, len(registries))}
	for _, reg := range registries {
		if _, exists := e.registries[reg.kind]; exists {
			return nil, fmt.Errorf("duplicate registry for kind %q", reg.kind)
		}
		e.registries[reg.kind] = reg
	}
	return e, nil
}

// Normalize evaluates every declared field of the registry for kind against
// one raw record. Each field is computed at most once; the result is
// memoized and reused for every subsequent reference. A computation error
// aborts normalization of this record only, wrapped as a
// catalog.FieldComputationError. A dependency cycle is a fatal
// configuration error.
func (e *Engine) Normalize(kind catalog.Kind, entityID string, rec catalog.RawRecord) (catalog.Entity, error) {
	reg, ok := e.registries[kind]
	if !ok {
		return nil, fmt.Errorf("no field registry for kind %q", kind)
	}

	res := &Resolution{
		reg:      reg,
		rec:      rec,
		entityID: entityID,
		resolved: make(map[string]any, len(reg.order)),
		visiting: map[string]bool{},
	}

	entity := make(catalog.Entity, len(reg.order))
	for _, name := range reg.order {
		value, err := res.Field(name)
		if err != nil {
			return nil, err
		}
		entity[name] = value
	}
	return entity, nil
}

// Resolution carries the per-record evaluation state: the memoized field
// values and the visiting set used for cycle detection.
type Resolution struct {
	reg      *Registry
	rec      catalog.RawRecord
	entityID string
	resolved map[string]any
	visiting map[string]bool
	stack    []string
}

// Field returns the resolved value of a field, computing it on first use.
func (res *Resolution) Field(name string) (any, error) {
	if value, ok := res.resolved[name]; ok {
		return value, nil
	}
	if res.visiting[name] {
		path := append(append([]string{}, res.stack...), name)
		return nil, fmt.Errorf("%w: %s", ErrFieldCycle, strings.Join(path, " -> "))
	}
	spec, ok := res.reg.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for kind %q", ErrUnknownField, name, res.reg.kind)
	}

	res.visiting[name] = true
	res.stack = append(res.stack, name)
	value, err := spec.Compute(res.rec, res)
	res.stack = res.stack[:len(res.stack)-1]
	delete(res.visiting, name)

	if err != nil {
		if errors.Is(err, ErrFieldCycle) || errors.Is(err, ErrUnknownField) {
			return nil, err
		}
		var fieldErr *catalog.FieldComputationError
		if errors.As(err, &fieldErr) {
			return nil, err
		}
		return nil, &catalog.FieldComputationError{Field: name, EntityID: res.entityID, Err: err}
	}
	res.resolved[name] = value
	return value, nil
}

// String resolves a field and returns it as a string; non-string values
// (including nil) resolve to "".
func (res *Resolution) String(name string) (string, error) {
	value, err := res.Field(name)
	if err != nil {
		return "", err
	}
	s, _ := value.(string)
	return s, nil
}
