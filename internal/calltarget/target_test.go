package calltarget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetsAreComparable(t *testing.T) {
	a := Target(Function{Name: "pkg.f"})
	b := Target(Function{Name: "pkg.f"})
	c := Target(Method{Class: "C", Name: "f"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTargetStringDistinguishesVariants(t *testing.T) {
	assert.Equal(t, "Function(pkg.f)", Function{Name: "pkg.f"}.String())
	assert.Equal(t, "Method(C.f)", Method{Class: "C", Name: "f"}.String())
	assert.Equal(t, "Override(D.f)", Override{Class: "D", Name: "f"}.String())
	assert.Equal(t, "Object(GLOBAL)", Object{Name: "GLOBAL"}.String())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Normal", Normal.String())
	assert.Equal(t, "PropertySetter", PropertySetter.String())
}
