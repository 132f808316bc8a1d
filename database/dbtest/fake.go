// Package dbtest provides an in-memory stand-in for the PostgreSQL pool
// used by the exporter. It understands exactly the queries of package
// database.
package dbtest

import (
	"context"
	"errors"
	"fmt"

	"f0oster/ntdsinspect/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type VersionKey struct {
	ObjectID uuid.UUID
	USN      int64
}

// Store is the state shared by a Pool and the transactions it hands out.
type Store struct {
	Objects  map[uuid.UUID]*int64
	Versions map[VersionKey][]byte
	Batched  []*pgx.QueuedQuery
	Execs    []string

	Commits   int
	Rollbacks int

	// FailOn makes the query with this exact SQL text fail.
	FailOn string
}

type Pool struct {
	*Store
}

func NewPool() *Pool {
	return &Pool{Store: &Store{
		Objects:  make(map[uuid.UUID]*int64),
		Versions: make(map[VersionKey][]byte),
	}}
}

func (p *Pool) Begin(context.Context) (pgx.Tx, error) {
	return &Tx{store: p.Store}, nil
}

func (p *Pool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.exec(sql, args)
}

func (p *Pool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return p.queryRow(sql, args)
}

func (p *Pool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	return p.sendBatch(b)
}

// Tx implements the parts of pgx.Tx the exporter uses; anything else
// panics through the nil embedded interface.
type Tx struct {
	pgx.Tx
	store *Store
	done  bool
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.Commits++
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.Rollbacks++
	return nil
}

func (t *Tx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.store.exec(sql, args)
}

func (t *Tx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return t.store.queryRow(sql, args)
}

func (t *Tx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	return t.store.sendBatch(b)
}

func objectID(arg any) uuid.UUID {
	return uuid.UUID(arg.(pgtype.UUID).Bytes)
}

func (s *Store) exec(sql string, args []any) (pgconn.CommandTag, error) {
	if sql == s.FailOn {
		return pgconn.CommandTag{}, errors.New("injected failure")
	}
	s.Execs = append(s.Execs, sql)
	switch sql {
	case database.InsertVersion:
		key := VersionKey{ObjectID: objectID(args[0]), USN: args[1].(int64)}
		if _, ok := s.Versions[key]; !ok {
			s.Versions[key] = args[3].([]byte)
		}
	case database.UpdateLastProcessedUSN:
		usn := args[0].(pgtype.Int8).Int64
		s.Objects[objectID(args[1])] = &usn
	}
	return pgconn.CommandTag{}, nil
}

type row struct {
	values []any
	err    error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *pgtype.Int8:
			*p = r.values[i].(pgtype.Int8)
		case *[]byte:
			*p = r.values[i].([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (s *Store) queryRow(sql string, args []any) pgx.Row {
	if sql == s.FailOn {
		return row{err: errors.New("injected failure")}
	}
	switch sql {
	case database.UpsertObject:
		id := objectID(args[0])
		current, ok := s.Objects[id]
		if !ok {
			s.Objects[id] = nil
		}
		if current == nil {
			return row{values: []any{pgtype.Int8{}}}
		}
		return row{values: []any{pgtype.Int8{Int64: *current, Valid: true}}}
	case database.GetPreviousSnapshot:
		data, ok := s.Versions[VersionKey{ObjectID: objectID(args[0]), USN: args[1].(int64)}]
		if !ok {
			return row{err: pgx.ErrNoRows}
		}
		return row{values: []any{data}}
	}
	return row{err: fmt.Errorf("unexpected query: %s", sql)}
}

type batchResults struct {
	pgx.BatchResults
	err error
}

func (b *batchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, b.err }
func (b *batchResults) Close() error                     { return nil }

func (s *Store) sendBatch(b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		if q.SQL == s.FailOn {
			return &batchResults{err: errors.New("injected failure")}
		}
	}
	s.Batched = append(s.Batched, b.QueuedQueries...)
	return &batchResults{}
}
