// Package depgraph implements the dependency tracker of spec §4.D:
// registering dependency keys when a query reads a cached result, and
// enumerating the keys triggered by an invalidation batch.
package depgraph

import "fmt"

// Kind discriminates the reason a computation was requested (§3
// "Dependency Key").
type Kind int

const (
	TypeCheckDefine Kind = iota
	WildcardImport
	AliasRegister
	ClassSummary
	AttributeResolve
	AnnotatedGlobal
	TaintModel
)

func (k Kind) String() string {
	switch k {
	case TypeCheckDefine:
		return "TypeCheckDefine"
	case WildcardImport:
		return "WildcardImport"
	case AliasRegister:
		return "AliasRegister"
	case ClassSummary:
		return "ClassSummary"
	case AttributeResolve:
		return "AttributeResolve"
	case AnnotatedGlobal:
		return "AnnotatedGlobal"
	case TaintModel:
		return "TaintModel"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Key is a discriminated tag naming the reason a computation was requested,
// e.g. TypeCheckDefine(qualifier). Two Keys with the same Kind and Name
// name the same reason.
type Key struct {
	Kind Kind
	Name string
}

func (k Key) String() string { return fmt.Sprintf("%s(%s)", k.Kind, k.Name) }

// Registered is the interned handle for a Key, per §3's "each key is
// internable to a small integer".
type Registered int32
