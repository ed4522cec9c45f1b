package store

import (
	"context"
	"sort"
)

// Record is one row of a model, keyed by bare column name. Values are
// whatever the driver returned for that column (string, int64, float64,
// bool, time.Time, nil, or a nested map/slice for json/jsonb columns) —
// DataMount is responsible for stringifying them per spec §4.E.
type Record map[string]interface{}

// ID returns the record's id column as a string, or "" if absent.
func (r Record) ID() string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// RecordStore is the abstract, transaction-scoped view of a tenant's
// namespace that DataMount and DescribeMount are built against. A
// concrete implementation is constructed fresh for each request by the
// wrapper, bound to that request's transaction (spec §7's "transaction
// scoped request wrapper"); mounts never see *sql.Tx directly.
//
// Every method operates within whatever transaction (or read-only
// snapshot) the implementation was constructed with — there is no
// separate ctx-scoped transaction argument, matching spec §7's rule that
// a mount never manages its own transaction boundary.
type RecordStore interface {
	// ListModels returns every model (table) visible in the current
	// namespace, sorted ascending.
	ListModels(ctx context.Context) ([]string, error)

	// ModelSchema returns the declared column shape of model.
	ModelSchema(ctx context.Context, model string) (ModelSchema, error)

	// ListLiveRecords returns every non-trashed, non-deleted record of
	// model, sorted ascending by id.
	ListLiveRecords(ctx context.Context, model string) ([]Record, error)

	// ListTrashedRecords returns every soft-deleted, non-hard-deleted
	// record of model, sorted ascending by id.
	ListTrashedRecords(ctx context.Context, model string) ([]Record, error)

	// GetRecord fetches one live record by id. ok is false if no such
	// live record exists.
	GetRecord(ctx context.Context, model, id string) (rec Record, ok bool, err error)

	// GetTrashedRecord fetches one trashed record by id.
	GetTrashedRecord(ctx context.Context, model, id string) (rec Record, ok bool, err error)

	// UpdateField sets one field of one record to value, bumping
	// updated_at. The field must not be read-only (enforced by the
	// caller via ModelSchema before this is reached).
	UpdateField(ctx context.Context, model, id, field string, value interface{}) error

	// SoftDelete marks a record trashed (sets trashed_at), implementing
	// rmdir on a record directory.
	SoftDelete(ctx context.Context, model, id string) error
}

// sortRecordsByID sorts a Record slice ascending by id, the stable order
// DataMount's readdir guarantees.
func sortRecordsByID(recs []Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID() < recs[j].ID() })
}
