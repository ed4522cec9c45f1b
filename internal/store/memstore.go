package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// MemStore is an in-memory RecordStore, grounded on the mock-store
// pattern in the reference corpus's integration tests: a fake good
// enough to exercise DataMount/DescribeMount logic without a database.
// It is not used outside of tests.
type MemStore struct {
	mu      sync.Mutex
	schemas map[string]ModelSchema
	records map[string]map[string]Record // model -> id -> record
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		schemas: make(map[string]ModelSchema),
		records: make(map[string]map[string]Record),
	}
}

// DefineModel registers a model's schema. Existing records are untouched.
func (m *MemStore) DefineModel(schema ModelSchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[schema.Name] = schema
	if m.records[schema.Name] == nil {
		m.records[schema.Name] = make(map[string]Record)
	}
}

// Seed inserts or replaces a record verbatim, for test setup.
func (m *MemStore) Seed(model string, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[model] == nil {
		m.records[model] = make(map[string]Record)
	}
	cp := make(Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	m.records[model][cp.ID()] = cp
}

func (m *MemStore) ListModels(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.schemas))
	for name := range m.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemStore) ModelSchema(ctx context.Context, model string) (ModelSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schemas[model]
	if !ok {
		return ModelSchema{}, vfserrors.New(vfserrors.ENOENT, "/"+model, "no such model")
	}
	return s, nil
}

func (m *MemStore) ListLiveRecords(ctx context.Context, model string) ([]Record, error) {
	return m.list(model, func(r Record) bool {
		return r["trashed_at"] == nil && r["deleted_at"] == nil
	})
}

func (m *MemStore) ListTrashedRecords(ctx context.Context, model string) ([]Record, error) {
	return m.list(model, func(r Record) bool {
		return r["trashed_at"] != nil && r["deleted_at"] == nil
	})
}

func (m *MemStore) list(model string, keep func(Record) bool) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[model]; !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, "/"+model, "no such model")
	}
	var out []Record
	for _, r := range m.records[model] {
		if keep(r) {
			out = append(out, r)
		}
	}
	sortRecordsByID(out)
	return out, nil
}

func (m *MemStore) GetRecord(ctx context.Context, model, id string) (Record, bool, error) {
	return m.get(model, id, func(r Record) bool {
		return r["trashed_at"] == nil && r["deleted_at"] == nil
	})
}

func (m *MemStore) GetTrashedRecord(ctx context.Context, model, id string) (Record, bool, error) {
	return m.get(model, id, func(r Record) bool {
		return r["trashed_at"] != nil && r["deleted_at"] == nil
	})
}

func (m *MemStore) get(model, id string, keep func(Record) bool) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[model]; !ok {
		return nil, false, vfserrors.New(vfserrors.ENOENT, "/"+model, "no such model")
	}
	r, ok := m.records[model][id]
	if !ok || !keep(r) {
		return nil, false, nil
	}
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp, true, nil
}

func (m *MemStore) UpdateField(ctx context.Context, model, id, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, ok := m.records[model]
	if !ok {
		return vfserrors.New(vfserrors.ENOENT, "/"+model, "no such model")
	}
	r, ok := recs[id]
	if !ok || r["deleted_at"] != nil {
		return vfserrors.New(vfserrors.ENOENT, "/"+model+"/"+id, "no such record")
	}
	r[field] = value
	r["updated_at"] = time.Now().UTC()
	return nil
}

func (m *MemStore) SoftDelete(ctx context.Context, model, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, ok := m.records[model]
	if !ok {
		return vfserrors.New(vfserrors.ENOENT, "/"+model, "no such model")
	}
	r, ok := recs[id]
	if !ok || r["deleted_at"] != nil {
		return vfserrors.New(vfserrors.ENOENT, "/"+model+"/"+id, "no such record")
	}
	if r["trashed_at"] != nil {
		return nil
	}
	r["trashed_at"] = time.Now().UTC()
	return nil
}
