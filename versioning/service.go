package versioning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"f0oster/ntdsinspect/database"
	"f0oster/ntdsinspect/diff"
	"f0oster/ntdsinspect/snapshot"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DomainID derives the stable id of a domain from its distinguished name.
func DomainID(domainDN string) uuid.UUID {
	return uuid.NewSHA1(domainNamespace, []byte(strings.ToLower(domainDN)))
}

// Service handles versioning business logic for directory objects.
// It orchestrates snapshot comparison, version creation, and change tracking.
type Service struct {
	dbClient        *database.DBClient
	snapshotService *snapshot.Service
	domainID        uuid.UUID
	sugar           *zap.SugaredLogger
}

func NewService(
	client *database.DBClient,
	snapSvc *snapshot.Service,
	domainID uuid.UUID,
	logger *zap.Logger,
) *Service {
	return &Service{
		dbClient:        client,
		snapshotService: snapSvc,
		domainID:        domainID,
		sugar:           logger.Sugar(),
	}
}

// ProcessSnapshots persists a batch of snapshots using versioning logic.
// The whole batch runs in one transaction and stops on the first error.
func (s *Service) ProcessSnapshots(ctx context.Context, snapshots []*snapshot.Snapshot) (Summary, error) {
	var summary Summary
	if len(snapshots) == 0 {
		return summary, nil
	}

	tx, err := s.dbClient.BeginTx(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.dbClient.RollbackTx(ctx, tx) // No-op if already committed

	for i, snap := range snapshots {
		result, err := s.processSnapshot(ctx, tx, snap)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to process snapshot %d (DN: %s): %w", i, snap.DN, err)
		}
		switch result {
		case outcomeCreated:
			summary.Created++
		case outcomeUpdated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}

	if err := s.dbClient.CommitTx(ctx, tx); err != nil {
		return Summary{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.sugar.Infow("processed snapshots", "count", len(snapshots),
		"created", summary.Created, "updated", summary.Updated, "unchanged", summary.Unchanged)
	return summary, nil
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
)

// processSnapshot determines whether this is a new object or an update.
func (s *Service) processSnapshot(ctx context.Context, tx pgx.Tx, snap *snapshot.Snapshot) (outcome, error) {
	currentUSN, err := s.dbClient.UpsertObject(ctx, tx,
		snap.ObjectGUID,
		snap.ObjectType,
		snap.DN,
		s.domainID,
		snap.IsDeleted,
	)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("upsert object failed: %w", err)
	}

	if currentUSN == nil {
		return outcomeCreated, s.createVersion(ctx, tx, snap)
	}
	return s.updateIfChanged(ctx, tx, snap, *currentUSN)
}

func (s *Service) createVersion(ctx context.Context, tx pgx.Tx, snap *snapshot.Snapshot) error {
	snapshotJSON, err := json.Marshal(snap.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	if err := s.dbClient.CreateVersion(ctx, tx,
		snap.ObjectGUID,
		snap.USNChanged,
		snap.Timestamp,
		snapshotJSON,
		ModifiedBySystem,
	); err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}
	if err := s.dbClient.UpdateLastProcessedUSN(ctx, tx, snap.USNChanged, snap.ObjectGUID); err != nil {
		return fmt.Errorf("failed to update current USN: %w", err)
	}
	s.sugar.Debugw("stored version", "objectGuid", snap.ObjectGUID, "dn", snap.DN, "usn", snap.USNChanged)
	return nil
}

// updateIfChanged only creates a new version if attributes actually changed.
func (s *Service) updateIfChanged(ctx context.Context, tx pgx.Tx, snap *snapshot.Snapshot, currentUSN int64) (outcome, error) {
	previousJSON, err := s.dbClient.GetVersionSnapshot(ctx, tx, snap.ObjectGUID, currentUSN)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("failed to load previous snapshot: %w", err)
	}
	if previousJSON == nil {
		s.sugar.Warnw("current version missing, storing a fresh one", "objectGuid", snap.ObjectGUID, "usn", currentUSN)
		return outcomeCreated, s.createVersion(ctx, tx, snap)
	}

	var previous map[string][]string
	if err := json.Unmarshal(previousJSON, &previous); err != nil {
		return outcomeUnchanged, fmt.Errorf("failed to unmarshal previous snapshot: %w", err)
	}

	changes := s.snapshotService.CompareSnapshots(previous, snap.Attributes)
	if len(changes) == 0 {
		return outcomeUnchanged, nil
	}

	if err := s.createVersion(ctx, tx, snap); err != nil {
		return outcomeUnchanged, err
	}

	records, err := s.changeRecords(snap, changes)
	if err != nil {
		return outcomeUnchanged, err
	}
	if err := s.dbClient.RecordAttributeChanges(ctx, tx, records); err != nil {
		return outcomeUnchanged, err
	}

	s.sugar.Infow("updated object", "objectGuid", snap.ObjectGUID, "dn", snap.DN,
		"changes", len(changes), "usn", snap.USNChanged)
	return outcomeUpdated, nil
}

func (s *Service) changeRecords(snap *snapshot.Snapshot, changes []diff.AttributeChange) ([]database.ChangeRecord, error) {
	records := make([]database.ChangeRecord, 0, len(changes))
	for _, change := range changes {
		oldJSON, err := json.Marshal(change.Old)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal old value for %s: %w", change.Name, err)
		}
		newJSON, err := json.Marshal(change.New)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal new value for %s: %w", change.Name, err)
		}
		records = append(records, database.ChangeRecord{
			ObjectID:      snap.ObjectGUID,
			USNChanged:    snap.USNChanged,
			AttributeName: change.Name,
			OldValue:      oldJSON,
			NewValue:      newJSON,
			Timestamp:     snap.Timestamp,
		})
	}
	return records, nil
}
