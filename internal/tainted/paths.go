package tainted

import "github.com/pyscope-dev/pyscope/internal/domain"

// A Model's three trees are all keyed by the same small access-path
// convention: Field("return") roots whatever taint reaches the bare
// return value, and Field("param:"+name) roots whatever taint is
// declared or inferred at a named parameter. This is a deliberate,
// Go-native simplification of the full access-path scheme §3 describes
// for field-sensitive propagation — parameters and the return value get
// one level of path, attribute/index access within them collapses to
// that same root (see evalExpr's AttributeExpression/SubscriptExpression
// cases) rather than descending further into the tree.
func returnPath() domain.Path { return domain.Path{domain.Field("return")} }

func paramPath(name string) domain.Path { return domain.Path{domain.Field("param:" + name)} }
