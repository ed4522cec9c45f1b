// Package describe implements spec §4.F's DescribeMount: a projection of
// schema metadata, read-only except for field documents (whose writes go
// through the observer pipeline), with field documents rendered as YAML
// (gopkg.in/yaml.v2, the same library the teacher's internal/config
// package uses) and a whole-model document in both JSON and YAML.
package describe

import (
	"context"
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/pathutil"
	"github.com/vfsql/vfsql/pkg/pipeline"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

const (
	fieldsDir  = "fields"
	jsonDocSeg = ".json"
	yamlDocSeg = ".yaml"
)

// Mount projects declared schema metadata for every model visible to
// the caller.
type Mount struct {
	records  store.RecordStore
	sysctx   *vfs.SystemContext
	pipeline pipeline.Pipeline
}

// New builds a DescribeMount.
func New(records store.RecordStore, sysctx *vfs.SystemContext, p pipeline.Pipeline) *Mount {
	if p == nil {
		p = pipeline.NopPipeline{}
	}
	return &Mount{records: records, sysctx: sysctx, pipeline: p}
}

var _ vfs.Mount = (*Mount)(nil)

// fieldDoc is the YAML/JSON shape rendered for one field.
type fieldDoc struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	ReadOnly bool   `json:"read_only" yaml:"read_only"`
}

// modelDoc is the YAML/JSON shape rendered for a whole model.
type modelDoc struct {
	Model  string     `json:"model" yaml:"model"`
	Fields []fieldDoc `json:"fields" yaml:"fields"`
}

func toFieldDoc(c store.ColumnSpec) fieldDoc {
	return fieldDoc{Name: c.Name, Type: c.Type, ReadOnly: c.ReadOnly()}
}

func toModelDoc(schema store.ModelSchema) modelDoc {
	doc := modelDoc{Model: schema.Name}
	for _, name := range schema.SortedColumnNames() {
		c, _ := schema.Column(name)
		doc.Fields = append(doc.Fields, toFieldDoc(c))
	}
	return doc
}

func (m *Mount) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	segs := pathutil.Split(path)
	switch len(segs) {
	case 0:
		return vfs.FSEntry{Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	case 1:
		if _, err := m.schema(ctx, segs[0]); err != nil {
			return vfs.FSEntry{}, err
		}
		return vfs.FSEntry{Name: segs[0], Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	case 2:
		model, leaf := segs[0], segs[1]
		schema, err := m.schema(ctx, model)
		if err != nil {
			return vfs.FSEntry{}, err
		}
		switch leaf {
		case fieldsDir:
			return vfs.FSEntry{Name: fieldsDir, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
		case jsonDocSeg:
			b, _ := m.renderJSON(schema)
			return vfs.FSEntry{Name: jsonDocSeg, Type: vfs.TypeFile, Size: int64(len(b)), Mode: vfs.ModeReadOnlyFile}, nil
		case yamlDocSeg:
			b, _ := m.renderYAML(schema)
			return vfs.FSEntry{Name: yamlDocSeg, Type: vfs.TypeFile, Size: int64(len(b)), Mode: vfs.ModeReadOnlyFile}, nil
		default:
			return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such schema document")
		}
	case 3:
		model, dir, field := segs[0], segs[1], segs[2]
		if dir != fieldsDir {
			return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such path")
		}
		schema, err := m.schema(ctx, model)
		if err != nil {
			return vfs.FSEntry{}, err
		}
		col, ok := schema.Column(field)
		if !ok {
			return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such field")
		}
		b, err := yaml.Marshal(toFieldDoc(col))
		if err != nil {
			return vfs.FSEntry{}, vfserrors.Wrap(path, err)
		}
		return vfs.FSEntry{Name: field, Type: vfs.TypeFile, Size: int64(len(b)), Mode: vfs.ModeReadOnlyFile}, nil
	default:
		return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "path too deep for this mount")
	}
}

func (m *Mount) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	segs := pathutil.Split(path)
	switch len(segs) {
	case 0:
		models, err := m.records.ListModels(ctx)
		if err != nil {
			return nil, vfserrors.Wrap(path, err)
		}
		sort.Strings(models)
		entries := make([]vfs.FSEntry, len(models))
		for i, name := range models {
			entries[i] = vfs.FSEntry{Name: name, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}
		}
		return entries, nil
	case 1:
		schema, err := m.schema(ctx, segs[0])
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := m.renderJSON(schema)
		yamlBytes, _ := m.renderYAML(schema)
		return []vfs.FSEntry{
			{Name: fieldsDir, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir},
			{Name: jsonDocSeg, Type: vfs.TypeFile, Size: int64(len(jsonBytes)), Mode: vfs.ModeReadOnlyFile},
			{Name: yamlDocSeg, Type: vfs.TypeFile, Size: int64(len(yamlBytes)), Mode: vfs.ModeReadOnlyFile},
		}, nil
	case 2:
		model, leaf := segs[0], segs[1]
		if leaf != fieldsDir {
			return nil, vfserrors.New(vfserrors.ENOTDIR, path, "not a directory")
		}
		schema, err := m.schema(ctx, model)
		if err != nil {
			return nil, err
		}
		names := schema.SortedColumnNames()
		entries := make([]vfs.FSEntry, len(names))
		for i, name := range names {
			col, _ := schema.Column(name)
			b, _ := yaml.Marshal(toFieldDoc(col))
			entries[i] = vfs.FSEntry{Name: name, Type: vfs.TypeFile, Size: int64(len(b)), Mode: vfs.ModeReadOnlyFile}
		}
		return entries, nil
	default:
		return nil, vfserrors.New(vfserrors.ENOTDIR, path, "not a directory")
	}
}

func (m *Mount) Read(ctx context.Context, path string) ([]byte, error) {
	segs := pathutil.Split(path)
	switch len(segs) {
	case 2:
		model, leaf := segs[0], segs[1]
		schema, err := m.schema(ctx, model)
		if err != nil {
			return nil, err
		}
		switch leaf {
		case jsonDocSeg:
			return m.renderJSON(schema)
		case yamlDocSeg:
			return m.renderYAML(schema)
		default:
			return nil, vfserrors.New(vfserrors.EISDIR, path, "is a directory")
		}
	case 3:
		model, dir, field := segs[0], segs[1], segs[2]
		if dir != fieldsDir {
			return nil, vfserrors.New(vfserrors.ENOENT, path, "no such path")
		}
		schema, err := m.schema(ctx, model)
		if err != nil {
			return nil, err
		}
		col, ok := schema.Column(field)
		if !ok {
			return nil, vfserrors.New(vfserrors.ENOENT, path, "no such field")
		}
		b, err := yaml.Marshal(toFieldDoc(col))
		if err != nil {
			return nil, vfserrors.Wrap(path, err)
		}
		return b, nil
	default:
		return nil, vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
}

// SupportsWrite reports true: field documents accept writes routed
// through the observer pipeline (spec §4.F), even though the model and
// JSON/YAML documents themselves remain read-only.
func (m *Mount) SupportsWrite() bool { return true }

func (m *Mount) Write(ctx context.Context, path string, content []byte) error {
	segs := pathutil.Split(path)
	if len(segs) != 3 || segs[1] != fieldsDir {
		return vfserrors.New(vfserrors.EROFS, path, "only field documents accept writes")
	}
	model, field := segs[0], segs[2]
	schema, err := m.schema(ctx, model)
	if err != nil {
		return err
	}
	if _, ok := schema.Column(field); !ok {
		return vfserrors.New(vfserrors.ENOENT, path, "no such field")
	}
	return m.pipeline.Write(ctx, pipeline.Mutation{Model: model, ID: "", Field: field, Value: string(content)})
}

func (m *Mount) Mkdir(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "schema is introspected, not authored through this mount")
}

func (m *Mount) Unlink(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "schema documents cannot be deleted")
}

func (m *Mount) Rmdir(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "schema directories cannot be removed")
}

func (m *Mount) Rename(ctx context.Context, from, to string) error {
	return vfserrors.New(vfserrors.EROFS, from, "schema documents cannot be renamed")
}

func (m *Mount) GetUsage(ctx context.Context, path string) (int64, error) {
	content, err := m.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func (m *Mount) schema(ctx context.Context, model string) (store.ModelSchema, error) {
	schema, err := m.records.ModelSchema(ctx, model)
	if err != nil {
		return store.ModelSchema{}, vfserrors.Wrap("/"+model, err)
	}
	return schema, nil
}

func (m *Mount) renderJSON(schema store.ModelSchema) ([]byte, error) {
	b, err := json.MarshalIndent(toModelDoc(schema), "", "  ")
	if err != nil {
		return nil, vfserrors.Wrap("/"+schema.Name, err)
	}
	return b, nil
}

func (m *Mount) renderYAML(schema store.ModelSchema) ([]byte, error) {
	b, err := yaml.Marshal(toModelDoc(schema))
	if err != nil {
		return nil, vfserrors.Wrap("/"+schema.Name, err)
	}
	return b, nil
}
