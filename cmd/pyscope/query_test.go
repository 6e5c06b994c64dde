package main

import "testing"

func TestSplitQueryExpr(t *testing.T) {
	cases := []struct {
		expr                            string
		qualifier, className, attr string
	}{
		{"pkg.mod", "pkg.mod", "", ""},
		{"mod", "mod", "", ""},
		{"pkg.mod.Foo", "pkg.mod", "Foo", ""},
		{"pkg.mod.Foo.bar", "pkg.mod", "Foo", "bar"},
		{"a.b.c.Foo.bar", "a.b.c", "Foo", "bar"},
	}
	for _, c := range cases {
		qualifier, className, attr := splitQueryExpr(c.expr)
		if qualifier != c.qualifier || className != c.className || attr != c.attr {
			t.Errorf("splitQueryExpr(%q) = (%q, %q, %q), want (%q, %q, %q)",
				c.expr, qualifier, className, attr, c.qualifier, c.className, c.attr)
		}
	}
}
