// Package triple defines the triple-shaped values that flow through
// the layer engine: resolved id triples, string triples with a
// node/value tagged object, and the partially-resolved form used
// while a builder is still reconciling staged strings against the
// parent chain's dictionaries.
package triple

// IDTriple is a fully resolved triple: three dense ids. Which id space
// the object id belongs to (node vs value) is not carried here; it is
// implied by the id's numeric range in the owning layer's dictionaries.
type IDTriple struct {
	Subject, Predicate, Object uint64
}

// ObjectKind tags whether a string triple's object is a node (which
// may also appear as a subject) or a value (which may not).
type ObjectKind uint8

const (
	KindNode ObjectKind = iota
	KindValue
)

func (k ObjectKind) String() string {
	if k == KindValue {
		return "value"
	}
	return "node"
}

// Object is a string-tagged triple object.
type Object struct {
	Kind ObjectKind
	Str  string
}

// Node constructs a node-tagged object.
func Node(s string) Object { return Object{Kind: KindNode, Str: s} }

// Value constructs a value-tagged object.
func Value(s string) Object { return Object{Kind: KindValue, Str: s} }

// StringTriple is a triple expressed in terms of its original strings.
type StringTriple struct {
	Subject, Predicate string
	Object             Object
}

// NewNode builds a string triple whose object is a node.
func NewNode(subject, predicate, object string) StringTriple {
	return StringTriple{Subject: subject, Predicate: predicate, Object: Node(object)}
}

// NewValue builds a string triple whose object is a value.
func NewValue(subject, predicate, object string) StringTriple {
	return StringTriple{Subject: subject, Predicate: predicate, Object: Value(object)}
}

// Possible is a value that is either already resolved to a dense id or
// still carries its original unresolved string.
type Possible struct {
	resolved bool
	id       uint64
	str      string
}

// Resolved wraps an already-known id.
func Resolved(id uint64) Possible { return Possible{resolved: true, id: id} }

// Unresolved wraps a string awaiting id assignment.
func Unresolved(s string) Possible { return Possible{str: s} }

// IsResolved reports whether the value already carries an id.
func (p Possible) IsResolved() bool { return p.resolved }

// ID returns the id, panicking if the value is unresolved.
func (p Possible) ID() uint64 {
	if !p.resolved {
		panic("triple: ID() called on an unresolved value")
	}
	return p.id
}

// Str returns the original string, panicking if the value is resolved.
func (p Possible) Str() string {
	if p.resolved {
		panic("triple: Str() called on a resolved value")
	}
	return p.str
}

// PartialObject is Possible plus the node/value tag, since that tag
// must survive until the object is resolved to an id.
type PartialObject struct {
	Kind ObjectKind
	Possible
}

// PartialTriple is a StringTriple whose components may have already
// been resolved against some prefix of the chain.
type PartialTriple struct {
	Subject, Predicate Possible
	Object             PartialObject
}

// ToUnresolved builds the fully-unresolved partial form of a string
// triple, the starting point for builder resolution.
func (t StringTriple) ToUnresolved() PartialTriple {
	return PartialTriple{
		Subject:   Unresolved(t.Subject),
		Predicate: Unresolved(t.Predicate),
		Object:    PartialObject{Kind: t.Object.Kind, Possible: Unresolved(t.Object.Str)},
	}
}

// ToResolved builds the fully-resolved partial form of an id triple.
func (t IDTriple) ToResolved(kind ObjectKind) PartialTriple {
	return PartialTriple{
		Subject:   Resolved(t.Subject),
		Predicate: Resolved(t.Predicate),
		Object:    PartialObject{Kind: kind, Possible: Resolved(t.Object)},
	}
}
