package ontology

// objectType is the shared immutable root type.
var objectType = &Type{name: ObjectTypeName}

// ObjectType returns the root type "object".
func ObjectType() *Type { return objectType }

// Instance is a named, typed PDDL object. Only the name takes part in
// comparisons.
type Instance struct {
	name    string
	typ     *Type
	payload interface{}
}

// Literal makes an instance of the root object type, for values that are not
// declared through a registry (numbers, plain names in tests).
func Literal(name string) Instance {
	return Instance{name: name, typ: objectType}
}

// Name returns the instance name.
func (i Instance) Name() string { return i.name }

// Type returns the instance type.
func (i Instance) Type() *Type {
	if i.typ == nil {
		return objectType
	}
	return i.typ
}

// Payload returns the domain-specific value attached by an InstanceBuilder.
func (i Instance) Payload() interface{} { return i.payload }

// WithPayload returns a copy of the instance carrying payload.
func (i Instance) WithPayload(payload interface{}) Instance {
	i.payload = payload
	return i
}

// Equal compares instances by name. Two instances with the same name but
// different types break the registry invariant and cause a panic.
func (i Instance) Equal(other Instance) bool {
	if i.name != other.name {
		return false
	}
	if !i.Type().sameStructure(other.Type()) {
		panic(invariantf("mismatching types (%s vs. %s) for two instances with the same name %q",
			i.Type(), other.Type(), i.name))
	}
	return true
}

// Expression returns the instance as a leaf expression.
func (i Instance) Expression() Expression {
	return Expression{Word: i.name, leafType: i.Type()}
}

// Declaration renders the instance as "name - type".
func (i Instance) Declaration() string {
	return i.name + " - " + i.Type().Name()
}

func (i Instance) String() string { return i.name }

// InstanceNames lists the names of instances, in order.
func InstanceNames(instances []Instance) []string {
	out := make([]string, len(instances))
	for idx, inst := range instances {
		out[idx] = inst.name
	}
	return out
}
