package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/weatherlogger/apiserver/internal/storage"
	"github.com/weatherlogger/apiserver/types"
)

const backupPrefix = "backups/weatherlogger-"

// BackupService exports the whole ledger to object storage and loads it
// back into an empty database.
type BackupService struct {
	series       SeriesRepository
	measurements MeasurementRepository
	objects      storage.ObjectStorage
	tx           Transactor
	now          func() time.Time
}

func NewBackupService(series SeriesRepository, measurements MeasurementRepository, objects storage.ObjectStorage, tx Transactor) *BackupService {
	return &BackupService{
		series:       series,
		measurements: measurements,
		objects:      objects,
		tx:           tx,
		now:          time.Now,
	}
}

// Snapshot reads every series with its measurements in one transaction.
func (s *BackupService) Snapshot(ctx context.Context) (types.Snapshot, error) {
	snapshot := types.Snapshot{
		CreatedAt: s.now().UTC(),
		Series:    []types.SeriesSnapshot{},
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		series, err := s.series.List(ctx)
		if err != nil {
			return err
		}
		if len(series) == 0 {
			return nil
		}

		ids := make([]int, len(series))
		for i, sr := range series {
			ids[i] = sr.ID
		}
		measurements, err := s.measurements.Query(ctx, types.MeasurementFilter{SeriesIDs: ids})
		if err != nil {
			return err
		}

		bySeries := make(map[int][]types.Measurement, len(series))
		for _, m := range measurements {
			bySeries[m.SeriesID] = append(bySeries[m.SeriesID], m)
		}
		for _, sr := range series {
			ms := bySeries[sr.ID]
			if ms == nil {
				ms = []types.Measurement{}
			}
			snapshot.Series = append(snapshot.Series, types.SeriesSnapshot{Series: sr, Measurements: ms})
		}
		return nil
	})
	if err != nil {
		return types.Snapshot{}, err
	}
	return snapshot, nil
}

// Create writes a snapshot to object storage and returns its key.
func (s *BackupService) Create(ctx context.Context) (string, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}

	if err := s.objects.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket %s: %w", s.objects.Bucket(), err)
	}

	key := backupPrefix + snapshot.CreatedAt.Format("20060102T150405Z") + ".json"
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// RestoreSummary counts the rows written by Restore.
type RestoreSummary struct {
	Series       int
	Measurements int
}

// Restore loads the backup stored under key. Series receive new ids, and
// their measurements follow them.
func (s *BackupService) Restore(ctx context.Context, key string) (RestoreSummary, error) {
	snapshot, err := s.load(ctx, key)
	if err != nil {
		return RestoreSummary{}, err
	}

	var summary RestoreSummary
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.series.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrRestoreNotEmpty
		}

		for _, ss := range snapshot.Series {
			created, err := s.series.Create(ctx, ss.Series)
			if err != nil {
				return fmt.Errorf("restore series %q: %w", ss.Name, err)
			}
			summary.Series++

			for _, m := range ss.Measurements {
				m.SeriesID = created.ID
				if _, err := s.measurements.Create(ctx, m); err != nil {
					return fmt.Errorf("restore measurement %d: %w", m.ID, err)
				}
				summary.Measurements++
			}
		}
		return nil
	})
	if err != nil {
		return RestoreSummary{}, err
	}
	return summary, nil
}

// Delete removes the backup stored under key.
func (s *BackupService) Delete(ctx context.Context, key string) error {
	err := s.objects.Delete(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return ErrBackupNotFound
	}
	return err
}

func (s *BackupService) load(ctx context.Context, key string) (types.Snapshot, error) {
	reader, err := s.objects.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return types.Snapshot{}, ErrBackupNotFound
		}
		return types.Snapshot{}, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return types.Snapshot{}, err
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode backup %s: %w", key, err)
	}
	return snapshot, nil
}
