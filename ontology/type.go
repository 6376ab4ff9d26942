package ontology

// ObjectTypeName is the root type every registry starts with. Omitting a type
// in PDDL means "object".
const ObjectTypeName = "object"

// Type is a named PDDL type with an optional parent.
type Type struct {
	name   string
	parent *Type
}

// Name returns the PDDL name of the type.
func (t *Type) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Parent returns the parent type, or nil for a root type.
func (t *Type) Parent() *Type {
	if t == nil {
		return nil
	}
	return t.parent
}

// IsA reports whether t is the named type or one of its descendants.
func (t *Type) IsA(name string) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.name == name {
			return true
		}
	}
	return false
}

// sameStructure compares names along the parent chains.
func (t *Type) sameStructure(other *Type) bool {
	a, b := t, other
	for a != nil && b != nil {
		if a.name != b.name {
			return false
		}
		a, b = a.parent, b.parent
	}
	return a == nil && b == nil
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.parent != nil {
		return t.parent.String() + " > " + t.name
	}
	return t.name
}
