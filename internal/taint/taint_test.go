package taint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pyscope-dev/pyscope/internal/domain"
)

func TestJoinModeNormalIsIdentity(t *testing.T) {
	sanitize := Mode{Kind: Sanitize, Sources: NewFilter("UserSpecified")}
	assert.Equal(t, sanitize, JoinMode(Mode{Kind: Normal}, sanitize))
	assert.Equal(t, sanitize, JoinMode(sanitize, Mode{Kind: Normal}))
}

func TestJoinModeSkipAnalysisAbsorbing(t *testing.T) {
	result := JoinMode(Mode{Kind: SkipAnalysis}, Mode{Kind: Sanitize, Sources: NewFilter("X")})
	assert.Equal(t, SkipAnalysis, result.Kind)
}

func TestJoinModeSanitizeUnionsFilters(t *testing.T) {
	a := Mode{Kind: Sanitize, Sources: NewFilter("X")}
	b := Mode{Kind: Sanitize, Sources: NewFilter("Y")}
	joined := JoinMode(a, b)
	assert.Contains(t, joined.Sources.Kinds, "X")
	assert.Contains(t, joined.Sources.Kinds, "Y")
}

func TestModelJoinUnionsForwardTrees(t *testing.T) {
	sourceA := &domain.Tree{Element: NewElement(Declaration{}, "UserSpecified")}
	sourceB := &domain.Tree{Element: NewElement(Declaration{}, "Cookie")}
	a := EmptyModel()
	a.Forward = sourceA
	b := EmptyModel()
	b.Forward = sourceB

	joined := Join(a, b)
	elem := joined.Forward.Element.(Element)
	assert.Contains(t, elem.Kinds, "UserSpecified")
	assert.Contains(t, elem.Kinds, "Cookie")
}

func TestModelLessOrEqualDetectsConvergence(t *testing.T) {
	m := EmptyModel()
	m.Forward = &domain.Tree{Element: NewElement(Declaration{}, "UserSpecified")}
	assert.True(t, LessOrEqual(m, m))

	grown := EmptyModel()
	grown.Forward = &domain.Tree{Element: NewElement(Declaration{}, "UserSpecified", "Cookie")}
	assert.True(t, LessOrEqual(m, grown))
	assert.False(t, LessOrEqual(grown, m))
}

func TestAttachBreadcrumbsAppliesLeafWise(t *testing.T) {
	tree := &domain.Tree{
		Element: NewElement(Declaration{}, "X"),
		Children: map[domain.Label]*domain.Tree{
			domain.Field("y"): {Element: NewElement(Declaration{}, "Y")},
		},
	}
	out := AttachBreadcrumbs(tree, []Breadcrumb{{Name: "via-feature"}})

	root := out.Element.(Element)
	assert.Contains(t, root.Breadcrumbs, Breadcrumb{Name: "via-feature"})
	child := out.Children[domain.Field("y")].Element.(Element)
	assert.Contains(t, child.Breadcrumbs, Breadcrumb{Name: "via-feature"})
}
