package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/wire"
	"github.com/rs/zerolog/log"
	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
	"gocloud.dev/blob"
)

const sweepBatchSize = 1000

// JanitorInjector injector for the retention janitor
var JanitorInjector = wire.NewSet(NewJanitor)

// ArchiveDirector fans archived case records out to the local archive and,
// when configured, a remote bucket.
type ArchiveDirector struct {
	LocalArchiveManager  *ArchiveWriteManager
	RemoteArchiveManager *ArchiveWriteManager
}

func (director *ArchiveDirector) Close() {
	if director.RemoteArchiveManager != nil {
		err := director.RemoteArchiveManager.Close()
		if err != nil {
			log.Error().Err(err).Msg("failed to close remote archive manager")
		}
	}
	err := director.LocalArchiveManager.Close()
	if err != nil {
		log.Error().Err(err).Msg("failed to close local archive manager")
	}
}

func buildRemoteObjectName(retentionConfig config.RetentionConfig) string {
	now := time.Now().UTC().Format("2006_01_02T15_04_05Z")
	objectName := fmt.Sprintf("%s_%s.jsonl", retentionConfig.GetArchiveNodeName(), now)
	if len(retentionConfig.GetRemoteFilePrefix()) > 0 {
		objectName = fmt.Sprintf("%s/%s", retentionConfig.GetRemoteFilePrefix(), objectName)
	}
	return objectName
}

var (
	initLocalArchiveManager = func(retentionConfig config.RetentionConfig) (*ArchiveWriteManager, error) {
		now := time.Now().UTC().Format("2006_01_02T15_04_05Z")
		dirPath := fmt.Sprintf("file://%s/%s", retentionConfig.GetArchivePath(), retentionConfig.GetRemoteFilePrefix())
		objectName := fmt.Sprintf("local_%s_%s.jsonl", retentionConfig.GetArchiveNodeName(), now)
		log.Info().Msgf("Local archive path: %s, object name: %s", dirPath, objectName)
		fileBucket, err := blob.OpenBucket(context.Background(), dirPath+"?no_tmp_dir=1")
		if err != nil {
			return nil, fmt.Errorf("failed to open local archive file: %w", err)
		}
		return NewArchiveWriteManager(NewBlobBucket(fileBucket),
			objectName, int64(retentionConfig.GetMaxArchiveFileSizeInMB())*1024*1024)
	}

	initRemoteArchiveManager = func(retentionConfig config.RetentionConfig) (*ArchiveWriteManager, error) {
		if retentionConfig.GetRemoteArchiveURL() == nil {
			return nil, nil
		}
		objectName := buildRemoteObjectName(retentionConfig)
		bucket, err := blob.OpenBucket(context.Background(), retentionConfig.GetRemoteArchiveURL().String())
		if err != nil {
			return nil, fmt.Errorf("failed to open remote bucket: %w", err)
		}
		return NewArchiveWriteManager(NewBlobBucket(bucket), objectName, int64(retentionConfig.GetMaxArchiveFileSizeInMB())*1024*1024)
	}

	initArchiveDirector = func(retentionConfig config.RetentionConfig) (*ArchiveDirector, error) {
		localArchiveManager, err := initLocalArchiveManager(retentionConfig)
		if err != nil {
			return nil, err
		}
		remoteArchiveManager, err := initRemoteArchiveManager(retentionConfig)
		if err != nil {
			return nil, err
		}
		return &ArchiveDirector{
			LocalArchiveManager:  localArchiveManager,
			RemoteArchiveManager: remoteArchiveManager,
		}, nil
	}

	archiveCase = func(item *data.RecoveryItem, attempts []*data.RecoveryAttempt, director *ArchiveDirector) error {
		archiveData := struct {
			Item     *data.RecoveryItem      `json:"item"`
			Attempts []*data.RecoveryAttempt `json:"attempts"`
		}{
			Item:     item,
			Attempts: attempts,
		}
		jsonData, err := json.Marshal(archiveData)
		if err != nil {
			return fmt.Errorf("failed to marshal case and attempts to JSON: %w", err)
		}
		jsonStr := string(jsonData) + "\n"

		_, err = director.LocalArchiveManager.Write(context.Background(), jsonStr)
		if err != nil {
			return fmt.Errorf("failed to write case to local archive: %w", err)
		}
		if director.RemoteArchiveManager != nil {
			_, err = director.RemoteArchiveManager.Write(context.Background(), jsonStr)
			if err != nil {
				return fmt.Errorf("failed to write case to remote archive: %w", err)
			}
		}

		return nil
	}
)

// Janitor enforces data retention: dedup ledger rows are pruned outright and
// terminal recovery cases are exported to JSONL archives before deletion.
type Janitor struct {
	dataAccessor    storage.DataAccessor
	retentionConfig config.RetentionConfig
	stopChan        chan struct{}
	wg              sync.WaitGroup
	now             func() time.Time
}

// NewJanitor creates the retention janitor
func NewJanitor(dataAccessor storage.DataAccessor, retentionConfig config.RetentionConfig) *Janitor {
	return &Janitor{
		dataAccessor:    dataAccessor,
		retentionConfig: retentionConfig,
		stopChan:        make(chan struct{}),
		now:             time.Now,
	}
}

// Start begins the periodic retention sweep; a no-op when retention is disabled
func (janitor *Janitor) Start() {
	if !janitor.retentionConfig.IsRetentionEnabled() {
		log.Info().Msg("Retention is disabled, janitor not started")
		return
	}
	janitor.wg.Add(1)
	go func() {
		defer janitor.wg.Done()
		ticker := time.NewTicker(janitor.retentionConfig.GetRetentionSweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := janitor.Sweep(context.Background()); err != nil {
					log.Error().Err(err).Msg("retention sweep failed")
				}
			case <-janitor.stopChan:
				return
			}
		}
	}()
}

// Stop halts the sweep loop
func (janitor *Janitor) Stop() {
	close(janitor.stopChan)
	janitor.wg.Wait()
}

// Sweep performs one retention pass: prune the ledger, then archive and
// delete terminal cases older than the item retention period.
func (janitor *Janitor) Sweep(ctx context.Context) error {
	if !janitor.retentionConfig.IsRetentionEnabled() {
		log.Info().Msg("Retention is disabled, so skipping")
		return nil
	}
	currentTime := janitor.now()
	pruned, err := janitor.dataAccessor.GetIdempotencyRepository().DeleteSeenBefore(currentTime.Add(-janitor.retentionConfig.GetLedgerRetentionPeriod()))
	if err != nil {
		return fmt.Errorf("failed to prune dedup ledger: %w", err)
	}
	if pruned > 0 {
		log.Info().Int64("pruned", pruned).Msg("dedup ledger rows pruned")
	}
	return janitor.archiveTerminalCases(ctx, currentTime)
}

func (janitor *Janitor) archiveTerminalCases(ctx context.Context, currentTime time.Time) error {
	archiveDirector, err := initArchiveDirector(janitor.retentionConfig)
	if err != nil {
		return err
	}
	defer archiveDirector.Close()
	itemRepo := janitor.dataAccessor.GetRecoveryItemRepository()
	attemptRepo := janitor.dataAccessor.GetAttemptRepository()
	threshold := currentTime.Add(-janitor.retentionConfig.GetItemRetentionPeriod())
	moreItems := true
	for moreItems {
		items, err := itemRepo.GetTerminalBefore(threshold, sweepBatchSize)
		if err != nil {
			return fmt.Errorf("failed to load terminal cases: %w", err)
		}
		if len(items) == 0 {
			moreItems = false
			continue
		}
		for _, item := range items {
			attempts, attemptErr := attemptRepo.GetByItem(item.ID.String())
			if attemptErr != nil {
				return fmt.Errorf("failed to load attempts for case %s: %w", item.ID, attemptErr)
			}
			if archiveErr := archiveCase(item, attempts, archiveDirector); archiveErr != nil {
				return fmt.Errorf("failed to archive case %s: %w", item.ID, archiveErr)
			}
			if deleteErr := attemptRepo.DeleteByItem(item.ID.String()); deleteErr != nil {
				return fmt.Errorf("failed to delete attempts for case %s: %w", item.ID, deleteErr)
			}
			if deleteErr := itemRepo.Delete(item); deleteErr != nil && deleteErr != storage.ErrNoRowsUpdated {
				return fmt.Errorf("failed to delete case %s: %w", item.ID, deleteErr)
			}
			log.Info().Str("itemId", item.ID.String()).Str("tenant", item.Tenant).Msg("terminal case archived and deleted")
		}
		if len(items) < sweepBatchSize {
			moreItems = false
		}
	}
	return nil
}
