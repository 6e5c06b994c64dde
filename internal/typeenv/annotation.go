// Package typeenv is the Layered Type Environment of §4.E: a stack of
// derived caches — alias resolver, class summary, attribute resolver,
// annotated global, type-check — each built the same way (compute a value,
// register dependency reads automatically, recompute only what an update
// triggers) directly on top of internal/sourceenv.
package typeenv

import (
	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/typesystem"
)

// AnnotationToType translates a type annotation expression into the
// typesystem.Type the rest of this package unifies against. An
// unannotated value (expr == nil) and the literal `Any` annotation both
// map to the TVar named "Any" (see IsAny), since gradual typing treats "unknown" and
// "explicitly dynamic" the same way at the unification layer.
func AnnotationToType(expr ast.Expression) typesystem.Type {
	if expr == nil {
		return anyType()
	}
	switch e := expr.(type) {
	case *ast.Identifier:
		switch e.Value {
		case "Any":
			return anyType()
		case "None":
			return typesystem.TCon{Name: "None"}
		default:
			return typesystem.TCon{Name: e.Value}
		}
	case *ast.Literal:
		if e.Kind == ast.LiteralNone {
			return typesystem.TCon{Name: "None"}
		}
		return anyType()
	case *ast.SubscriptExpression:
		ctorName := "Any"
		if ident, ok := e.Value.(*ast.Identifier); ok {
			ctorName = ident.Value
		}
		var args []typesystem.Type
		if tup, ok := e.Index.(*ast.TupleExpression); ok {
			for _, el := range tup.Elements {
				args = append(args, AnnotationToType(el))
			}
		} else {
			args = append(args, AnnotationToType(e.Index))
		}
		return typesystem.TApp{Constructor: typesystem.TCon{Name: ctorName}, Args: args}
	case *ast.AttributeExpression:
		// a qualified annotation like `module.Type`; the attribute resolver
		// is the layer that would know whether this resolves, so here it's
		// treated nominally by its attribute name alone.
		return typesystem.TCon{Name: e.Attr}
	default:
		return anyType()
	}
}

func anyType() typesystem.Type { return typesystem.TVar{Name: "Any"} }

// LiteralType returns the concrete Type of a scalar literal node.
func LiteralType(lit *ast.Literal) typesystem.Type {
	switch lit.Kind {
	case ast.LiteralString:
		return typesystem.TCon{Name: "str"}
	case ast.LiteralInt:
		return typesystem.TCon{Name: "int"}
	case ast.LiteralFloat:
		return typesystem.TCon{Name: "float"}
	case ast.LiteralBool:
		return typesystem.TCon{Name: "bool"}
	case ast.LiteralNone:
		return typesystem.TCon{Name: "None"}
	default:
		return anyType()
	}
}

// IsAny reports whether t is the gradual-typing wildcard, so callers can
// skip a unification they already know would trivially succeed.
func IsAny(t typesystem.Type) bool {
	v, ok := t.(typesystem.TVar)
	return ok && v.Name == "Any"
}
