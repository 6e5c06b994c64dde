package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pyscope-dev/pyscope/internal/diagnostics"
)

func TestColorEnabledFalseForNonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, colorEnabled(&buf))
}

func TestSeverityColorDistinguishesLevels(t *testing.T) {
	assert.Equal(t, ansiRed, severityColor(diagnostics.Error))
	assert.Equal(t, ansiYellow, severityColor(diagnostics.Warning))
	assert.Equal(t, ansiBlue, severityColor(diagnostics.Info))
}

func TestPrintDiagnosticsCountsOnlyErrors(t *testing.T) {
	ds := []diagnostics.Diagnostic{
		{Code: 1, Severity: diagnostics.Error, Message: "bad"},
		{Code: 2, Severity: diagnostics.Warning, Message: "meh"},
		{Code: 3, Severity: diagnostics.Error, Message: "also bad"},
	}
	var buf bytes.Buffer
	count := printDiagnostics(&buf, "pkg.mod", ds)
	assert.Equal(t, 2, count)
	assert.Contains(t, buf.String(), "bad")
	assert.Contains(t, buf.String(), "pkg.mod")
}

func TestPrintDiagnosticsFallsBackToQualifierWhenPathEmpty(t *testing.T) {
	ds := []diagnostics.Diagnostic{{Code: 9, Severity: diagnostics.Info, Message: "note"}}
	var buf bytes.Buffer
	printDiagnostics(&buf, "pkg.mod", ds)
	assert.Contains(t, buf.String(), "pkg.mod:")
}
