package ontology

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// InstanceBuilder constructs instances of one type. Builders let a domain
// attach its own payload to the instances of a type. A builder runs under the
// registry lock and must not call back into the registry.
type InstanceBuilder func(name string, typ *Type) (Instance, error)

// Registry holds the declared types and the canonical identity of instances.
// It is safe for concurrent use: concurrent definitions of one name have a
// single winner, and a losing definition either matches it or fails.
type Registry struct {
	types     map[string]*Type
	order     []string
	builders  map[string]InstanceBuilder
	instances map[string]*Type

	mu sync.RWMutex
}

// NewRegistry creates a registry holding only the root type "object".
func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Reset forgets every type, builder and instance but "object". Only call it
// between independent runs.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = map[string]*Type{ObjectTypeName: objectType}
	r.order = []string{ObjectTypeName}
	r.builders = make(map[string]InstanceBuilder)
	r.instances = make(map[string]*Type)
}

// DefineType declares a type. An empty parent declares a root type. Defining
// an existing name again is a no-op when the parent chain is identical.
func (r *Registry) DefineType(name, parent string) (*Type, error) {
	if name == "" {
		return nil, invariantf("type name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var parentType *Type
	if parent != "" {
		p, ok := r.types[parent]
		if !ok {
			return nil, fmt.Errorf("defining type %q: parent: %w", name, &UnknownTypeError{Type: parent})
		}
		parentType = p
	}

	candidate := &Type{name: name, parent: parentType}
	if existing, ok := r.types[name]; ok {
		if existing.sameStructure(candidate) {
			return existing, nil
		}
		return nil, invariantf("type %q already exists but differs\nincoming: %s\nexisting: %s",
			name, candidate, existing)
	}

	r.types[name] = candidate
	r.order = append(r.order, name)
	return candidate, nil
}

// MustDefineType is DefineType for static domain declarations.
func (r *Registry) MustDefineType(name, parent string) *Type {
	t, err := r.DefineType(name, parent)
	if err != nil {
		panic(err)
	}
	return t
}

// Type looks up a type by name.
func (r *Registry) Type(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// Types lists user-declared types in declaration order. The implicit root
// "object" is not included.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Type, 0, len(r.order))
	for _, name := range r.order {
		if name == ObjectTypeName {
			continue
		}
		out = append(out, r.types[name])
	}
	return out
}

// RegisterBuilder sets the instance builder for a type and its subtypes that
// have no builder of their own.
func (r *Registry) RegisterBuilder(typeName string, builder InstanceBuilder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.types[typeName]; !ok {
		return fmt.Errorf("registering builder: %w", &UnknownTypeError{Type: typeName})
	}
	r.builders[typeName] = builder
	return nil
}

// Builders lists the type names that have a registered builder.
func (r *Registry) Builders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewInstance creates an instance of a registered type. An instance name
// keeps the type it was first created with. Variables ("?x") are scoped to
// their action or quantifier and are not recorded.
func (r *Registry) NewInstance(name, typeName string) (Instance, error) {
	if name == "" {
		return Instance{}, invariantf("instance name cannot be empty")
	}
	if typeName == "" {
		typeName = ObjectTypeName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	typ, ok := r.types[typeName]
	if !ok {
		return Instance{}, &UnknownTypeError{Type: typeName}
	}
	variable := IsVariable(name)
	if existing, ok := r.instances[name]; ok && !variable && !existing.sameStructure(typ) {
		return Instance{}, invariantf("mismatching types (%s vs. %s) for two instances with the same name %q",
			typ, existing, name)
	}

	inst := Instance{name: name, typ: typ}
	if builder := r.builderFor(typ); builder != nil {
		built, err := builder(name, typ)
		if err != nil {
			return Instance{}, fmt.Errorf("building instance %q of type %q: %w", name, typeName, err)
		}
		if built.name != name || !built.Type().sameStructure(typ) {
			return Instance{}, invariantf("builder for type %q returned %s", typeName, built.Declaration())
		}
		inst = built
	}

	if !variable {
		r.instances[name] = typ
	}
	return inst, nil
}

// MustInstance is NewInstance for static declarations.
func (r *Registry) MustInstance(name, typeName string) Instance {
	inst, err := r.NewInstance(name, typeName)
	if err != nil {
		panic(err)
	}
	return inst
}

func (r *Registry) builderFor(typ *Type) InstanceBuilder {
	for cur := typ; cur != nil; cur = cur.parent {
		if b, ok := r.builders[cur.name]; ok {
			return b
		}
	}
	return nil
}

// IsVariable reports whether name is a PDDL variable.
func IsVariable(name string) bool {
	return len(name) > 1 && name[0] == '?'
}

// Instances lists recorded instance names with their type names.
func (r *Registry) Instances() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.instances))
	for name, typ := range r.instances {
		out[name] = typ.name
	}
	return out
}

var declarationPattern = regexp.MustCompile(`^\s*([^\s()]+)(?:\s+-\s+([^\s()]+))?\s*$`)

// SplitDeclaration splits "name - type" into its parts. The type defaults to
// "object".
func SplitDeclaration(declaration string) (name, typeName string, err error) {
	m := declarationPattern.FindStringSubmatch(declaration)
	if m == nil {
		return "", "", &MalformedInputError{Position: -1, Message: fmt.Sprintf("parameter declaration is badly formed: %q", declaration)}
	}
	typeName = m[2]
	if typeName == "" {
		typeName = ObjectTypeName
	}
	return m[1], typeName, nil
}

// ParseDeclaration creates the instance a "name - type" declaration denotes.
func (r *Registry) ParseDeclaration(declaration string) (Instance, error) {
	name, typeName, err := SplitDeclaration(declaration)
	if err != nil {
		return Instance{}, err
	}
	return r.NewInstance(name, typeName)
}
