package persist

import (
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pyscope-dev/pyscope/internal/modeldsl"
)

// stubSnapshotDTO is the cacheable substance of a modeldsl.ParseResult:
// the parsed declarations themselves. Errors from the last parse are
// never persisted — Errors holds a `[]error` of concrete
// diagnostics.ModelVerificationError values that a cached run has no way
// to reconstruct generically, and a stale parse error has no value once
// the source it was reported against may have changed.
type stubSnapshotDTO struct {
	Models        []modeldsl.SignatureModel
	Globals       []modeldsl.GlobalModel
	Queries       []modeldsl.ModelQuery
	SkipOverrides []string
}

// SaveStubSnapshot persists the typeshed-equivalent stub declarations
// parsed from path, tagged with epoch.
func (s *Store) SaveStubSnapshot(path, epoch string, result *modeldsl.ParseResult) error {
	dto := stubSnapshotDTO{
		Models:        result.Models,
		Globals:       result.Globals,
		Queries:       result.Queries,
		SkipOverrides: result.SkipOverrides,
	}
	data, err := yaml.Marshal(dto)
	if err != nil {
		return fmt.Errorf("encoding stub snapshot for %s: %w", path, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO stub_snapshot(path, epoch, data) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET epoch=excluded.epoch, data=excluded.data
	`, path, epoch, data)
	return err
}

// LoadStubSnapshot returns the cached declarations for path if one was
// stored under epoch, reconstructing a modeldsl.ParseResult with an empty
// Errors slice (the cached rows are, by construction, the subset that
// parsed cleanly last time).
func (s *Store) LoadStubSnapshot(path, epoch string) (*modeldsl.ParseResult, bool, error) {
	row := s.db.QueryRow(`SELECT data FROM stub_snapshot WHERE path = ? AND epoch = ?`, path, epoch)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var dto stubSnapshotDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, false, fmt.Errorf("decoding cached stub snapshot for %s: %w", path, err)
	}
	return &modeldsl.ParseResult{
		Models:        dto.Models,
		Globals:       dto.Globals,
		Queries:       dto.Queries,
		SkipOverrides: dto.SkipOverrides,
	}, true, nil
}
