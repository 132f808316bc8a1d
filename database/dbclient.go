package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the query surface shared by pgx.Tx and *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pool is what DBClient needs from a connection pool.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type DBClient struct {
	pool Pool
}

func NewDBClient(pool Pool) *DBClient {
	return &DBClient{pool: pool}
}

func (r *DBClient) InsertDomain(ctx context.Context, d DomainRecord) error {
	_, err := r.pool.Exec(ctx, InsertDomain,
		uuidToPgtype(d.DomainID),
		d.DomainName,
		d.SourceFile,
		pgtype.Int8{Int64: d.HighestUSN, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert domain failed: %w", err)
	}
	return nil
}

func (r *DBClient) UpdateDomainLastProcessedUSN(ctx context.Context, domainID uuid.UUID, lastProcessedUSN int64) error {
	_, err := r.pool.Exec(ctx, UpdateDomainLastProcessedUSN,
		uuidToPgtype(domainID),
		pgtype.Int8{Int64: lastProcessedUSN, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("update domain last processed USN failed: %w", err)
	}
	return nil
}

// Returns the last processed USN (nil if this is a new object).
func (r *DBClient) UpsertObject(
	ctx context.Context,
	tx DBTX,
	objectID uuid.UUID,
	objectType string,
	dn string,
	domainID uuid.UUID,
	isDeleted bool,
) (*int64, error) {
	var currentUSN pgtype.Int8
	err := tx.QueryRow(ctx, UpsertObject,
		uuidToPgtype(objectID),
		objectType,
		dn,
		uuidToPgtype(domainID),
		isDeleted,
	).Scan(&currentUSN)
	if err != nil {
		return nil, fmt.Errorf("upsert object query failed: %w", err)
	}
	return pgtypeToInt64(currentUSN), nil
}

// GetVersionSnapshot returns the stored attribute JSON of one version, or
// nil when that version does not exist.
func (r *DBClient) GetVersionSnapshot(ctx context.Context, tx DBTX, objectID uuid.UUID, usnChanged int64) ([]byte, error) {
	var snapshotJSON []byte
	err := tx.QueryRow(ctx, GetPreviousSnapshot, uuidToPgtype(objectID), usnChanged).Scan(&snapshotJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version snapshot query failed: %w", err)
	}
	return snapshotJSON, nil
}

func (r *DBClient) CreateVersion(
	ctx context.Context,
	tx DBTX,
	objectID uuid.UUID,
	usnChanged int64,
	timestamp time.Time,
	attributesJSON []byte,
	modifiedBy string,
) error {
	_, err := tx.Exec(ctx, InsertVersion,
		uuidToPgtype(objectID),
		usnChanged,
		pgtype.Timestamp{Time: timestamp, Valid: true},
		attributesJSON,
		pgtype.Text{String: modifiedBy, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("create version query failed: %w", err)
	}
	return nil
}

func (r *DBClient) UpdateLastProcessedUSN(ctx context.Context, tx DBTX, usnChanged int64, objectID uuid.UUID) error {
	_, err := tx.Exec(ctx, UpdateLastProcessedUSN,
		pgtype.Int8{Int64: usnChanged, Valid: true},
		uuidToPgtype(objectID),
	)
	if err != nil {
		return fmt.Errorf("update last processed USN query failed: %w", err)
	}
	return nil
}

// AttributeChangeBatch queues one insert per change record.
func AttributeChangeBatch(changes []ChangeRecord) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, c := range changes {
		batch.Queue(InsertAttributeChange,
			uuidToPgtype(c.ObjectID),
			c.USNChanged,
			c.AttributeName,
			c.OldValue,
			c.NewValue,
			pgtype.Timestamp{Time: c.Timestamp, Valid: true},
		)
	}
	return batch
}

func (r *DBClient) RecordAttributeChanges(ctx context.Context, tx DBTX, changes []ChangeRecord) error {
	if len(changes) == 0 {
		return nil
	}
	batch := AttributeChangeBatch(changes)
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("record attribute change %s failed: %w", changes[i].AttributeName, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("record attribute changes failed: %w", err)
	}
	return nil
}

func (r *DBClient) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}
	return tx, nil
}

func (r *DBClient) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction failed: %w", err)
	}
	return nil
}

func (r *DBClient) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	// Rollback returns an error if transaction is already committed/rolled back
	return tx.Rollback(ctx)
}

// Helper functions for UUID conversion

func uuidToPgtype(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgtypeToInt64(val pgtype.Int8) *int64 {
	if !val.Valid {
		return nil
	}
	return &val.Int64
}
