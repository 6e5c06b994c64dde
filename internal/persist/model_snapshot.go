package persist

import (
	"crypto/sha256"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/domain"
	"github.com/pyscope-dev/pyscope/internal/fixpoint"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

// targetDTO is calltarget.Target's four comparable-struct variants
// flattened into one serializable shape, the same Kind-tag-plus-fields
// style internal/modeldsl uses for its own expression vocabulary.
type targetDTO struct {
	Kind  string `yaml:"kind"`
	Class string `yaml:"class,omitempty"`
	Name  string `yaml:"name"`
	TKind int    `yaml:"tkind,omitempty"`
}

func toTargetDTO(t calltarget.Target) targetDTO {
	switch v := t.(type) {
	case calltarget.Function:
		return targetDTO{Kind: "Function", Name: v.Name, TKind: int(v.Kind)}
	case calltarget.Method:
		return targetDTO{Kind: "Method", Class: v.Class, Name: v.Name, TKind: int(v.Kind)}
	case calltarget.Override:
		return targetDTO{Kind: "Override", Class: v.Class, Name: v.Name, TKind: int(v.Kind)}
	case calltarget.Object:
		return targetDTO{Kind: "Object", Name: v.Name}
	default:
		return targetDTO{}
	}
}

func (d targetDTO) toTarget() calltarget.Target {
	switch d.Kind {
	case "Function":
		return calltarget.Function{Name: d.Name, Kind: calltarget.Kind(d.TKind)}
	case "Method":
		return calltarget.Method{Class: d.Class, Name: d.Name, Kind: calltarget.Kind(d.TKind)}
	case "Override":
		return calltarget.Override{Class: d.Class, Name: d.Name, Kind: calltarget.Kind(d.TKind)}
	case "Object":
		return calltarget.Object{Name: d.Name}
	default:
		return nil
	}
}

// tagDTO mirrors one taint.TitoTag.
type tagDTO struct {
	Kind  int `yaml:"kind"`
	Index int `yaml:"index,omitempty"`
}

// treeDTO is a serializable domain.Tree. Only one of Kinds/Tito is ever
// populated for a given tree, depending on whether it came from a
// Forward/SinkTree (taint.Element leaves) or a TitoTree (taint.TitoElement
// leaves). TraceInfo and Breadcrumbs are intentionally dropped: they only
// matter during the pass that produced them (diagnostics rendering,
// own-parameter sink attribution), and a restored model is always used as
// a fresh `previous` for a pass that recomputes them, never resumed
// mid-pass (see DESIGN.md's persist Open Question decision).
type treeDTO struct {
	Kinds    []string            `yaml:"kinds,omitempty"`
	Tito     []tagDTO            `yaml:"tito,omitempty"`
	Children map[string]*treeDTO `yaml:"children,omitempty"`
}

func labelKey(l domain.Label) string {
	switch l.Kind {
	case domain.FieldLabel:
		return "f:" + l.Name
	case domain.DictionaryKeysLabel:
		return "k"
	default:
		return "*"
	}
}

func labelFromKey(key string) domain.Label {
	switch {
	case key == "k":
		return domain.DictionaryKeys
	case key == "*":
		return domain.AnyIndex
	case len(key) >= 2 && key[:2] == "f:":
		return domain.Field(key[2:])
	default:
		return domain.Field(key)
	}
}

func toTreeDTO(t *domain.Tree) *treeDTO {
	if domain.IsBottom(t) {
		return nil
	}
	dto := &treeDTO{}
	switch e := t.Element.(type) {
	case taint.Element:
		for k := range e.Kinds {
			dto.Kinds = append(dto.Kinds, k)
		}
	case taint.TitoElement:
		for tag := range e.Tags {
			dto.Tito = append(dto.Tito, tagDTO{Kind: int(tag.Kind), Index: tag.ParamIndex})
		}
	}
	if len(t.Children) > 0 {
		dto.Children = make(map[string]*treeDTO, len(t.Children))
		for l, c := range t.Children {
			if child := toTreeDTO(c); child != nil {
				dto.Children[labelKey(l)] = child
			}
		}
	}
	return dto
}

// fromTreeDTO reconstructs a tree whose leaves are taint.Element when
// asTito is false, or taint.TitoElement when true — the caller knows
// which, since Forward/SinkTree and TitoTree are never mixed.
func fromTreeDTO(dto *treeDTO, asTito bool) *domain.Tree {
	if dto == nil {
		return domain.Bottom()
	}
	var elem domain.Element
	if asTito {
		if len(dto.Tito) > 0 {
			tags := make([]taint.TitoTag, len(dto.Tito))
			for i, tg := range dto.Tito {
				tags[i] = taint.TitoTag{Kind: taint.TitoTagKind(tg.Kind), ParamIndex: tg.Index}
			}
			elem = taint.NewTitoElement(tags...)
		}
	} else if len(dto.Kinds) > 0 {
		elem = taint.NewElement(taint.Declaration{LeafNameProvided: true}, dto.Kinds...)
	}
	var children map[domain.Label]*domain.Tree
	if len(dto.Children) > 0 {
		children = make(map[domain.Label]*domain.Tree, len(dto.Children))
		for k, c := range dto.Children {
			children[labelFromKey(k)] = fromTreeDTO(c, asTito)
		}
	}
	return &domain.Tree{Element: elem, Children: children}
}

type modeDTO struct {
	Kind    int      `yaml:"kind"`
	Sources []string `yaml:"sources,omitempty"`
	Sinks   []string `yaml:"sinks,omitempty"`
	Tito    []string `yaml:"tito,omitempty"`
}

func toModeDTO(m taint.Mode) modeDTO {
	dto := modeDTO{Kind: int(m.Kind)}
	if m.Sources != nil {
		dto.Sources = filterKindsList(m.Sources)
	}
	if m.Sinks != nil {
		dto.Sinks = filterKindsList(m.Sinks)
	}
	if m.Tito != nil {
		dto.Tito = filterKindsList(m.Tito)
	}
	return dto
}

func filterKindsList(f *taint.Filter) []string {
	out := make([]string, 0, len(f.Kinds))
	for k := range f.Kinds {
		out = append(out, k)
	}
	return out
}

func (d modeDTO) toMode() taint.Mode {
	m := taint.Mode{Kind: taint.ModeKind(d.Kind)}
	if d.Sources != nil {
		m.Sources = taint.NewFilter(d.Sources...)
	}
	if d.Sinks != nil {
		m.Sinks = taint.NewFilter(d.Sinks...)
	}
	if d.Tito != nil {
		m.Tito = taint.NewFilter(d.Tito...)
	}
	return m
}

type modelDTO struct {
	Forward  *treeDTO `yaml:"forward,omitempty"`
	SinkTree *treeDTO `yaml:"sink_tree,omitempty"`
	TitoTree *treeDTO `yaml:"tito_tree,omitempty"`
	Mode     modeDTO  `yaml:"mode"`
}

func toModelDTO(m *taint.Model) modelDTO {
	return modelDTO{
		Forward:  toTreeDTO(m.Forward),
		SinkTree: toTreeDTO(m.Backward.SinkTree),
		TitoTree: toTreeDTO(m.Backward.TitoTree),
		Mode:     toModeDTO(m.Mode),
	}
}

func (d modelDTO) toModel() *taint.Model {
	return &taint.Model{
		Forward: fromTreeDTO(d.Forward, false),
		Backward: taint.BackwardModel{
			SinkTree: fromTreeDTO(d.SinkTree, false),
			TitoTree: fromTreeDTO(d.TitoTree, true),
		},
		Mode: d.Mode.toMode(),
	}
}

type modelRow struct {
	Target targetDTO `yaml:"target"`
	Model  modelDTO  `yaml:"model"`
}

func targetHash(target calltarget.Target) []byte {
	sum := sha256.Sum256([]byte(target.String()))
	return sum[:]
}

// SaveModels snapshots every current entry of handle and upserts it into
// the models table tagged with epoch.
func (s *Store) SaveModels(epoch string, handle fixpoint.ModelsHandle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO models(target_hash, target_repr, epoch, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(target_hash) DO UPDATE SET target_repr=excluded.target_repr, epoch=excluded.epoch, data=excluded.data
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for target, model := range handle.Snapshot() {
		row := modelRow{Target: toTargetDTO(target), Model: toModelDTO(model)}
		data, err := yaml.Marshal(row)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding model for %s: %w", target, err)
		}
		if _, err := stmt.Exec(targetHash(target), target.String(), epoch, data); err != nil {
			tx.Rollback()
			return fmt.Errorf("writing model for %s: %w", target, err)
		}
	}
	return tx.Commit()
}

// LoadModels reads every row tagged with epoch back into a fresh
// ModelsHandle. A caller comparing the returned handle's population
// against the current source set decides whether the cache is stale for
// any individual target (§6's "tagged with an epoch so stale caches are
// detected" is a per-row check, not an all-or-nothing one).
func (s *Store) LoadModels(epoch string) (fixpoint.ModelsHandle, error) {
	rows, err := s.db.Query(`SELECT data FROM models WHERE epoch = ?`, epoch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	handle := fixpoint.NewModelsHandle()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var row modelRow
		if err := yaml.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("decoding cached model: %w", err)
		}
		target := row.Target.toTarget()
		if target == nil {
			continue
		}
		handle.Add(target, row.Model.toModel())
	}
	return handle, rows.Err()
}
