package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorToDiagnostic(t *testing.T) {
	pe := &ParseError{Path: "a.pys", Line: 3, Col: 5, Message: "unexpected token"}
	d := pe.ToDiagnostic()
	assert.Equal(t, CodeParseError, d.Code)
	assert.Equal(t, Error, d.Severity)
	assert.Equal(t, "a.pys", d.Location.Path)
	assert.Equal(t, 3, d.Location.Line)
}

func TestVerificationKindString(t *testing.T) {
	assert.Equal(t, "NotInEnvironment", NotInEnvironment.String())
	assert.Equal(t, "InvalidDefaultValue", InvalidDefaultValue.String())
}

func TestNonConvergenceErrorMessage(t *testing.T) {
	err := &NonConvergenceError{MaxIterations: 10, Oscillating: []string{"pkg.f", "pkg.g"}}
	assert.Contains(t, err.Error(), "10")
	assert.Contains(t, err.Error(), "pkg.f")
}
