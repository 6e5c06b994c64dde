package filetracker

import "testing"

func TestQualifierForRelPath(t *testing.T) {
	cases := []struct {
		rel       string
		qualifier string
		isInit    bool
	}{
		{"app.pys", "app", false},
		{"pkg/sub/mod.pys", "pkg.sub.mod", false},
		{"pkg/__init__.pys", "pkg", true},
		{"pkg/sub/__init__.pys", "pkg.sub", true},
		{"__init__.pys", "", true},
		{"stubs/os.pysi", "stubs.os", false},
	}
	for _, c := range cases {
		q, isInit := QualifierForRelPath(c.rel)
		if q != c.qualifier || isInit != c.isInit {
			t.Errorf("QualifierForRelPath(%q) = (%q, %v), want (%q, %v)", c.rel, q, isInit, c.qualifier, c.isInit)
		}
	}
}
