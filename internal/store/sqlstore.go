package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// SQLStore is the database/sql-backed RecordStore, constructed fresh for
// each request transaction by the wrapper (spec §7). It never opens or
// closes a transaction itself; that is the wrapper's job.
type SQLStore struct {
	q Querier
}

// NewSQLStore binds a RecordStore to an already-open transaction.
func NewSQLStore(q Querier) *SQLStore {
	return &SQLStore{q: q}
}

var _ RecordStore = (*SQLStore)(nil)

func (s *SQLStore) ListModels(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name`
	rows, err := s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, vfserrors.Wrap("/", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, vfserrors.Wrap("/", err)
		}
		names = append(names, name)
	}
	return names, vfserrors.Wrap("/", rows.Err())
}

func (s *SQLStore) ModelSchema(ctx context.Context, model string) (ModelSchema, error) {
	if err := ValidateIdentifier("/"+model, model); err != nil {
		return ModelSchema{}, err
	}

	const q = `
		SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
	rows, err := s.q.QueryContext(ctx, q, model)
	if err != nil {
		return ModelSchema{}, vfserrors.Wrap("/"+model, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []ColumnSpec
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return ModelSchema{}, vfserrors.Wrap("/"+model, err)
		}
		cols = append(cols, ColumnSpec{Name: name, Kind: ClassifyColumn(name), Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return ModelSchema{}, vfserrors.Wrap("/"+model, err)
	}
	if len(cols) == 0 {
		return ModelSchema{}, vfserrors.New(vfserrors.ENOENT, "/"+model, "no such model")
	}
	return ModelSchema{Name: model, Columns: cols}, nil
}

func (s *SQLStore) ListLiveRecords(ctx context.Context, model string) ([]Record, error) {
	return s.list(ctx, model, `WHERE trashed_at IS NULL AND deleted_at IS NULL ORDER BY id`)
}

func (s *SQLStore) ListTrashedRecords(ctx context.Context, model string) ([]Record, error) {
	return s.list(ctx, model, `WHERE trashed_at IS NOT NULL AND deleted_at IS NULL ORDER BY id`)
}

func (s *SQLStore) list(ctx context.Context, model, clause string) ([]Record, error) {
	if err := ValidateIdentifier("/"+model, model); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT * FROM %q %s`, model, clause)
	rows, err := s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, classifyQueryError(model, err)
	}
	defer func() { _ = rows.Close() }()

	recs, err := scanRows(rows)
	if err != nil {
		return nil, vfserrors.Wrap("/"+model, err)
	}
	sortRecordsByID(recs)
	return recs, nil
}

func (s *SQLStore) GetRecord(ctx context.Context, model, id string) (Record, bool, error) {
	return s.get(ctx, model, id, `trashed_at IS NULL AND deleted_at IS NULL`)
}

func (s *SQLStore) GetTrashedRecord(ctx context.Context, model, id string) (Record, bool, error) {
	return s.get(ctx, model, id, `trashed_at IS NOT NULL AND deleted_at IS NULL`)
}

func (s *SQLStore) get(ctx context.Context, model, id, clause string) (Record, bool, error) {
	if err := ValidateIdentifier("/"+model, model); err != nil {
		return nil, false, err
	}

	q := fmt.Sprintf(`SELECT * FROM %q WHERE id = $1 AND %s`, model, clause)
	rows, err := s.q.QueryContext(ctx, q, id)
	if err != nil {
		return nil, false, classifyQueryError(model, err)
	}
	defer func() { _ = rows.Close() }()

	recs, err := scanRows(rows)
	if err != nil {
		return nil, false, vfserrors.Wrap("/"+model+"/"+id, err)
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0], true, nil
}

func (s *SQLStore) UpdateField(ctx context.Context, model, id, field string, value interface{}) error {
	if err := ValidateIdentifier("/"+model, model); err != nil {
		return err
	}
	if err := ValidateIdentifier("/"+model+"/"+id+"/"+field, field); err != nil {
		return err
	}

	q := fmt.Sprintf(`UPDATE %q SET %q = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`, model, field)
	res, err := s.q.ExecContext(ctx, q, value, id)
	if err != nil {
		return classifyQueryError(model, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return vfserrors.Wrap("/"+model+"/"+id+"/"+field, err)
	}
	if n == 0 {
		return vfserrors.New(vfserrors.ENOENT, "/"+model+"/"+id, "no such record")
	}
	return nil
}

func (s *SQLStore) SoftDelete(ctx context.Context, model, id string) error {
	if err := ValidateIdentifier("/"+model, model); err != nil {
		return err
	}

	q := fmt.Sprintf(`UPDATE %q SET trashed_at = now() WHERE id = $1 AND trashed_at IS NULL AND deleted_at IS NULL`, model)
	res, err := s.q.ExecContext(ctx, q, id)
	if err != nil {
		return classifyQueryError(model, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return vfserrors.Wrap("/"+model+"/"+id, err)
	}
	if n == 0 {
		// already trashed, or never existed: callers distinguish by a
		// prior GetRecord, so treat this as a no-op rather than ENOENT.
		return nil
	}
	return nil
}

// classifyQueryError wraps a raw driver error as EIO unless it's the
// one case database/sql surfaces as a plain sentinel.
func classifyQueryError(model string, err error) error {
	if err == sql.ErrNoRows {
		return vfserrors.New(vfserrors.ENOENT, "/"+model, "no such record")
	}
	return vfserrors.Wrap("/"+model, err)
}

// scanRows drains *sql.Rows into generic Records using Rows.Columns,
// since the column set varies per model.
func scanRows(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Record
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = normalizeScanValue(vals[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// normalizeScanValue converts driver values that database/sql hands back as
// raw []byte (text/varchar/numeric columns, depending on driver) into string,
// so downstream stringify treats them as text rather than encoding them as
// opaque binary data. Every other driver value type passes through unchanged.
func normalizeScanValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
