// Package data implements spec §4.E's DataMount (and its read-only
// sibling, TrashedMount): a mount projecting one data model as a
// three-level virtual tree, `/model/id/field`. Grounded on the
// teacher's internal/filesystem mount pattern for the Stat/Readdir/Read
// shape, and on other_examples/61972deb_jackfish212-Shellfish for the
// idea of a lightweight type probe used to avoid I/O on hot paths.
package data

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/pathutil"
	"github.com/vfsql/vfsql/pkg/pipeline"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// Mount projects live records of every model visible to the caller as
// `/model/id/field`. Construct one with NewTrashed (below) instead for the
// read-only, trashed-only sibling.
type Mount struct {
	records  store.RecordStore
	sysctx   *vfs.SystemContext
	pipeline pipeline.Pipeline
	trashed  bool
}

// New builds a live DataMount bound to records, the caller's
// SystemContext, and the observer pipeline every write/delete routes
// through.
func New(records store.RecordStore, sysctx *vfs.SystemContext, p pipeline.Pipeline) *Mount {
	if p == nil {
		p = pipeline.NopPipeline{}
	}
	return &Mount{records: records, sysctx: sysctx, pipeline: p}
}

// NewTrashed builds the read-only TrashedMount sibling: identical tree,
// only trashed_at IS NOT NULL records, EROFS on every mutator.
func NewTrashed(records store.RecordStore, sysctx *vfs.SystemContext) *Mount {
	return &Mount{records: records, sysctx: sysctx, pipeline: pipeline.NopPipeline{}, trashed: true}
}

var _ vfs.Mount = (*Mount)(nil)
var _ vfs.TypeProbe = (*Mount)(nil)

// ProbeType answers spec §4.E's lightweight type probe: the tree shape
// is knowable from depth alone, no I/O. Depth ≥ 4 never exists, but
// that is an existence fact, not a type fact, so it returns nil and
// lets Stat make the call.
func (m *Mount) ProbeType(path string) *vfs.FileType {
	depth := pathutil.Depth(path)
	var t vfs.FileType
	switch depth {
	case 0, 1, 2:
		t = vfs.TypeDirectory
	case 3:
		t = vfs.TypeFile
	default:
		return nil
	}
	return &t
}

func (m *Mount) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	segs := pathutil.Split(path)
	switch len(segs) {
	case 0:
		return vfs.FSEntry{Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	case 1:
		model := segs[0]
		if _, err := m.visibleSchema(ctx, model); err != nil {
			return vfs.FSEntry{}, err
		}
		return vfs.FSEntry{Name: model, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	case 2:
		model, id := segs[0], segs[1]
		if _, err := m.visibleRecord(ctx, model, id); err != nil {
			return vfs.FSEntry{}, err
		}
		return vfs.FSEntry{Name: id, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	case 3:
		model, id, field := segs[0], segs[1], segs[2]
		rec, err := m.visibleRecord(ctx, model, id)
		if err != nil {
			return vfs.FSEntry{}, err
		}
		schema, err := m.records.ModelSchema(ctx, model)
		if err != nil {
			return vfs.FSEntry{}, vfserrors.Wrap(path, err)
		}
		col, ok := schema.Column(field)
		if !ok {
			return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such field")
		}
		value := stringify(rec[field])
		return vfs.FSEntry{Name: field, Type: vfs.TypeFile, Size: int64(len(value)), Mode: fieldMode(col)}, nil
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
		var entries []vfs.FSEntry
		for _, name := range models {
			if !m.modelVisible(name) {
				continue
			}
			entries = append(entries, vfs.FSEntry{Name: name, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		return entries, nil
	case 1:
		model := segs[0]
		if _, err := m.visibleSchema(ctx, model); err != nil {
			return nil, err
		}
		recs, err := m.listVisible(ctx, model)
		if err != nil {
			return nil, err
		}
		entries := make([]vfs.FSEntry, len(recs))
		for i, r := range recs {
			entries[i] = vfs.FSEntry{Name: r.ID(), Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}
		}
		return entries, nil
	case 2:
		model, id := segs[0], segs[1]
		if _, err := m.visibleRecord(ctx, model, id); err != nil {
			return nil, err
		}
		schema, err := m.records.ModelSchema(ctx, model)
		if err != nil {
			return nil, vfserrors.Wrap(path, err)
		}
		names := schema.SortedColumnNames()
		rec, _, err := m.getRecord(ctx, model, id)
		if err != nil {
			return nil, err
		}
		entries := make([]vfs.FSEntry, len(names))
		for i, name := range names {
			col, _ := schema.Column(name)
			value := stringify(rec[name])
			entries[i] = vfs.FSEntry{Name: name, Type: vfs.TypeFile, Size: int64(len(value)), Mode: fieldMode(col)}
		}
		return entries, nil
	default:
		return nil, vfserrors.New(vfserrors.ENOTDIR, path, "not a directory")
	}
}

func (m *Mount) Read(ctx context.Context, path string) ([]byte, error) {
	segs := pathutil.Split(path)
	if len(segs) != 3 {
		return nil, vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
	model, id, field := segs[0], segs[1], segs[2]
	rec, err := m.visibleRecord(ctx, model, id)
	if err != nil {
		return nil, err
	}
	schema, err := m.records.ModelSchema(ctx, model)
	if err != nil {
		return nil, vfserrors.Wrap(path, err)
	}
	if _, ok := schema.Column(field); !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such field")
	}
	return []byte(stringify(rec[field])), nil
}

func (m *Mount) SupportsWrite() bool { return !m.trashed }

func (m *Mount) Write(ctx context.Context, path string, content []byte) error {
	if m.trashed {
		return vfserrors.New(vfserrors.EROFS, path, "trashed mount is read-only")
	}
	segs := pathutil.Split(path)
	if len(segs) != 3 {
		return vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
	model, id, field := segs[0], segs[1], segs[2]
	if _, err := m.visibleRecord(ctx, model, id); err != nil {
		return err
	}
	schema, err := m.records.ModelSchema(ctx, model)
	if err != nil {
		return vfserrors.Wrap(path, err)
	}
	col, ok := schema.Column(field)
	if !ok {
		return vfserrors.New(vfserrors.ENOENT, path, "no such field")
	}
	if col.ReadOnly() {
		return vfserrors.New(vfserrors.EROFS, path, "field is read-only")
	}

	value := parseValue(content)
	if err := m.pipeline.Write(ctx, pipeline.Mutation{Model: model, ID: id, Field: field, Value: value}); err != nil {
		return err
	}
	if err := m.records.UpdateField(ctx, model, id, field, value); err != nil {
		return vfserrors.Wrap(path, err)
	}
	return nil
}

func (m *Mount) Mkdir(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "models and records are created through higher-level APIs")
}

func (m *Mount) Unlink(ctx context.Context, path string) error {
	if m.trashed {
		return vfserrors.New(vfserrors.EROFS, path, "trashed mount is read-only")
	}
	segs := pathutil.Split(path)
	if len(segs) != 3 {
		return vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
	return vfserrors.New(vfserrors.EROFS, path, "fields cannot be deleted individually")
}

func (m *Mount) Rmdir(ctx context.Context, path string) error {
	if m.trashed {
		return vfserrors.New(vfserrors.EROFS, path, "trashed mount is read-only")
	}
	segs := pathutil.Split(path)
	switch len(segs) {
	case 0:
		return vfserrors.New(vfserrors.EACCES, path, "cannot remove mount root")
	case 1:
		return vfserrors.New(vfserrors.EACCES, path, "models are not removable through this mount")
	case 2:
		model, id := segs[0], segs[1]
		if _, err := m.visibleRecord(ctx, model, id); err != nil {
			return err
		}
		if err := m.pipeline.Delete(ctx, pipeline.Deletion{Model: model, ID: id, Hard: false}); err != nil {
			return err
		}
		if err := m.records.SoftDelete(ctx, model, id); err != nil {
			return vfserrors.Wrap(path, err)
		}
		return nil
	default:
		return vfserrors.New(vfserrors.ENOTDIR, path, "not a directory")
	}
}

func (m *Mount) Rename(ctx context.Context, from, to string) error {
	if m.trashed {
		return vfserrors.New(vfserrors.EROFS, from, "trashed mount is read-only")
	}
	return vfserrors.New(vfserrors.EINVAL, from, "records cannot be renamed")
}

func (m *Mount) GetUsage(ctx context.Context, path string) (int64, error) {
	segs := pathutil.Split(path)
	if len(segs) != 3 {
		return 0, vfserrors.New(vfserrors.EIO, path, "usage is only defined for a field")
	}
	content, err := m.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

// modelVisible is the depth-0 model filter. It always returns true:
// every model the store lists, system tables included, appears at depth 0
// with no model-level or access-level check; ACL filtering applies only
// to the records below it.
func (m *Mount) modelVisible(name string) bool {
	return true
}

func (m *Mount) visibleSchema(ctx context.Context, model string) (store.ModelSchema, error) {
	schema, err := m.records.ModelSchema(ctx, model)
	if err != nil {
		return store.ModelSchema{}, vfserrors.Wrap("/"+model, err)
	}
	return schema, nil
}

// listVisible returns every live-or-trashed (per m.trashed) record of
// model, filtered by ACL per spec §4.E: visible iff the caller's
// identity intersects access_read ∪ access_edit ∪ access_full and does
// not intersect access_deny, unless sudo is held. A record whose three
// allow lists are all empty is visible to every caller it does not deny.
func (m *Mount) listVisible(ctx context.Context, model string) ([]store.Record, error) {
	var (
		recs []store.Record
		err  error
	)
	if m.trashed {
		recs, err = m.records.ListTrashedRecords(ctx, model)
	} else {
		recs, err = m.records.ListLiveRecords(ctx, model)
	}
	if err != nil {
		return nil, vfserrors.Wrap("/"+model, err)
	}

	if m.sysctx != nil && m.sysctx.Sudo() {
		return recs, nil
	}

	var out []store.Record
	for _, r := range recs {
		if m.aclAllows(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Mount) aclAllows(rec store.Record) bool {
	if m.sysctx == nil {
		return true
	}
	if m.sysctx.Sudo() {
		return true
	}
	deny := toStringSlice(rec["access_deny"])
	if m.sysctx.Identity.Intersects(deny) {
		return false
	}
	allow := append(append(toStringSlice(rec["access_read"]), toStringSlice(rec["access_edit"])...), toStringSlice(rec["access_full"])...)
	if len(allow) == 0 {
		return true
	}
	return m.sysctx.Identity.Intersects(allow)
}

func (m *Mount) getRecord(ctx context.Context, model, id string) (store.Record, bool, error) {
	if m.trashed {
		return m.records.GetTrashedRecord(ctx, model, id)
	}
	return m.records.GetRecord(ctx, model, id)
}

// visibleRecord fetches a record by id, translating "missing" and
// "ACL-denied" both to ENOENT: the spec does not distinguish the two at
// this layer (a record a caller may not see does not exist from their
// point of view).
func (m *Mount) visibleRecord(ctx context.Context, model, id string) (store.Record, error) {
	rec, ok, err := m.getRecord(ctx, model, id)
	if err != nil {
		return nil, vfserrors.Wrap("/"+model+"/"+id, err)
	}
	if !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, "/"+model+"/"+id, "no such record")
	}
	if !m.aclAllows(rec) {
		return nil, vfserrors.New(vfserrors.ENOENT, "/"+model+"/"+id, "no such record")
	}
	return rec, nil
}

func fieldMode(col store.ColumnSpec) vfs.FileOs {
	if col.ReadOnly() {
		return vfs.ModeReadOnlyFile
	}
	return vfs.ModeWritableFile
}

func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// stringify renders a stored column value as VFS file bytes, per spec
// §4.E: bool -> true/false, numbers -> shortest decimal, null -> empty,
// arrays/objects -> canonical JSON, strings -> raw.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// parseValue turns the raw bytes of a PUT body into a value to hand the
// pipeline and the store. Unlike stringify it has no schema to consult
// (the column's declared type lives in ModelSchema, not in the write
// path), so it keeps the wire value as a string; type coercion, if any,
// is the pipeline's job.
func parseValue(content []byte) interface{} {
	return string(content)
}
