package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the resolved project configuration: the union of
// pyscope.yaml and environment variables, with defaults filled in.
type Settings struct {
	// SearchRoots is the ordered, prioritized list of source search roots;
	// index 0 has the lowest priority tag (wins on qualifier collisions).
	SearchRoots []string `yaml:"search_roots"`

	// CacheDir holds the persisted shared-memory heap and stub snapshot.
	CacheDir string `yaml:"cache_dir"`

	// MaxIterations bounds the fixpoint driver's work-list passes (§4.G step 7).
	MaxIterations int `yaml:"max_iterations"`

	// WideningDepth is read from pyscope.yaml and defaulted, but no analysis
	// pass consumes it: the fixpoint driver passes the iteration number as
	// the depth argument of AbstractDomain Tree widening (§4.A).
	WideningDepth int `yaml:"widening_depth"`

	// ExpensiveCallableMS is the advisory per-target telemetry threshold (§5).
	ExpensiveCallableMS int64 `yaml:"expensive_callable_ms"`

	// RuleFilter, when non-empty, restricts which taint rules analyze keeps;
	// each entry matches a rule's name or its numeric code (§4.I "Filtering").
	RuleFilter []string `yaml:"rule_filter"`

	// TaintModelPaths are `.pysa`-style documents parsed by internal/modeldsl.
	TaintModelPaths []string `yaml:"taint_models"`

	// WorkerChunks caps the number of concurrent fixpoint workers (§5).
	WorkerChunks int `yaml:"worker_chunks"`
}

// DefaultSettings returns the zero-config baseline used when no
// pyscope.yaml is present.
func DefaultSettings() *Settings {
	return &Settings{
		SearchRoots:         []string{"."},
		CacheDir:            defaultCacheDir(),
		MaxIterations:       100,
		WideningDepth:       4,
		ExpensiveCallableMS: 500,
		WorkerChunks:        4,
	}
}

func defaultCacheDir() string {
	if dir := BinaryPath(); dir != "" {
		return filepath.Join(filepath.Dir(dir), ".pyscope-cache")
	}
	return ".pyscope-cache"
}

// LoadSettings reads pyscope.yaml at path (if it exists) over the defaults.
// A missing file is not an error; a malformed one is. Legacy daemon env vars
// are tolerated (read but never consulted for behavior), matching the
// upstream test harnesses that clear them unconditionally.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	_ = legacyDaemonEnvSet() // tolerated, never influences settings

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	if settings.CacheDir == "" {
		settings.CacheDir = defaultCacheDir()
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = 100
	}
	if settings.WideningDepth <= 0 {
		settings.WideningDepth = 4
	}
	if settings.WorkerChunks <= 0 {
		settings.WorkerChunks = 4
	}
	return settings, nil
}
