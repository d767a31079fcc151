// Package gormstorage implements the storage interfaces on GORM with a queued
// frame writer. The sqlite backend embeds it; storage.type=postgres uses it directly.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/routethat/playsim/internal/database"
	"github.com/routethat/playsim/internal/logging"
	"github.com/routethat/playsim/internal/model"
	"github.com/routethat/playsim/internal/model/convert"
	"github.com/routethat/playsim/internal/queue"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued frames are written when no interval is configured.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// Backend implements storage.Backend and storage.PlayStore using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	frames   *queue.Queue[model.Frame]
	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:   deps,
		frames: queue.New[model.Frame](),
	}
}

func (b *Backend) log() *slog.Logger {
	return b.deps.LogManager.Logger().With("component", "storage.gorm")
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the frame writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.log().Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartRun inserts the run row synchronously so queued frames can reference it.
func (b *Backend) StartRun(run *core.PlayRun) error {
	row, err := convert.CoreToRun(*run)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordFrame converts and queues a snapshot.
func (b *Backend) RecordFrame(runID string, s *core.Snapshot) error {
	row, err := convert.CoreToFrame(runID, *s)
	if err != nil {
		return err
	}
	b.frames.Push(row)
	return nil
}

// EndRun flushes the run's frames and upserts its result.
func (b *Backend) EndRun(result *core.PlayResult) error {
	if err := b.Flush(); err != nil {
		return err
	}
	row := convert.CoreToResult(*result)
	err := b.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to insert result for %s: %w", result.RunID, err)
	}
	return nil
}

// Flush writes all queued frames now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return writeQueue(b.deps.DB, b.frames, "frames")
}

// Pending returns the number of frames waiting to be written.
func (b *Backend) Pending() int {
	return b.frames.Len()
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log().Error("Error writing frames", "error", err)
			}
		}
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	items := q.Drain(0)
	if len(items) == 0 {
		return nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		q.Push(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return nil
}

// SavePlay upserts a play by name.
func (b *Backend) SavePlay(ctx context.Context, play core.SavedPlay) error {
	row, err := convert.CoreToPlay(play)
	if err != nil {
		return err
	}
	err = b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"routes", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save play %q: %w", play.Name, err)
	}
	return nil
}

// LoadPlays returns every saved play in insertion order.
func (b *Backend) LoadPlays(ctx context.Context) ([]core.SavedPlay, error) {
	var rows []model.Play
	if err := b.deps.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load plays: %w", err)
	}
	plays := make([]core.SavedPlay, 0, len(rows))
	for _, row := range rows {
		p, err := convert.PlayToCore(row)
		if err != nil {
			return nil, err
		}
		plays = append(plays, p)
	}
	return plays, nil
}

// DeletePlay removes a play by name.
func (b *Backend) DeletePlay(ctx context.Context, name string) error {
	res := b.deps.DB.WithContext(ctx).Where("name = ?", name).Delete(&model.Play{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete play %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrPlayNotFound
	}
	return nil
}

// Results returns finished runs, newest first.
func (b *Backend) Results(ctx context.Context, limit int) ([]core.PlayResult, error) {
	q := b.deps.DB.WithContext(ctx).Order("ended_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.Result
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	out := make([]core.PlayResult, len(rows))
	for i, row := range rows {
		out[i] = convert.ResultToCore(row)
	}
	return out, nil
}

// Run loads a recorded run by id.
func (b *Backend) Run(ctx context.Context, id string) (core.PlayRun, error) {
	var row model.Run
	err := b.deps.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.PlayRun{}, storage.ErrRunNotFound
	}
	if err != nil {
		return core.PlayRun{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return convert.RunToCore(row)
}

// Frames loads the written frames for a run in tick order.
func (b *Backend) Frames(ctx context.Context, runID string) ([]core.Snapshot, error) {
	var rows []model.Frame
	if err := b.deps.DB.WithContext(ctx).Where("run_id = ?", runID).Order("tick").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load frames for %s: %w", runID, err)
	}
	out := make([]core.Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := convert.FrameToCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
