package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

// supportedExts lists the file extensions the parser can handle.
var supportedExts = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
	".xlsm":     true,
	".xltx":     true,
	".xltm":     true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// ListFiles returns the supported files directly under dataDir, sorted by
// name. Subdirectories and unsupported extensions are skipped.
func ListFiles(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir %s: %w", dataDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !supportedExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dataDir, entry.Name()))
	}
	return files, nil
}

// ProcessedFile marks a source file as indexed. The source file itself is
// never moved or renamed; completion state lives only here.
type ProcessedFile struct {
	bun.BaseModel `bun:"table:processed_files,alias:pf"`
	Path          string    `bun:"path,pk"`
	ChunkCount    int       `bun:"chunk_count,notnull"`
	ProcessedAt   time.Time `bun:"processed_at,nullzero,notnull,default:current_timestamp"`
}

// Tracker records which files have been indexed so repeated scans of the
// data directory do not re-ingest them.
type Tracker struct {
	db *bun.DB
}

func NewTracker(ctx context.Context, db *bun.DB) (*Tracker, error) {
	if _, err := db.NewCreateTable().Model((*ProcessedFile)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create processed_files table: %w", err)
	}
	return &Tracker{db: db}, nil
}

func (t *Tracker) IsProcessed(ctx context.Context, path string) (bool, error) {
	exists, err := t.db.NewSelect().
		Model((*ProcessedFile)(nil)).
		Where("path = ?", path).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check processed state of %s: %w", path, err)
	}
	return exists, nil
}

func (t *Tracker) MarkProcessed(ctx context.Context, path string, chunkCount int) error {
	rec := ProcessedFile{Path: path, ChunkCount: chunkCount, ProcessedAt: time.Now()}
	_, err := t.db.NewInsert().
		Model(&rec).
		On("CONFLICT (path) DO UPDATE").
		Set("chunk_count = EXCLUDED.chunk_count").
		Set("processed_at = EXCLUDED.processed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark %s processed: %w", path, err)
	}
	return nil
}

// Scheduler periodically scans the data directory and ingests any file not
// yet tracked as processed.
type Scheduler struct {
	pipeline *Pipeline
	tracker  *Tracker
	dataDir  string
	interval time.Duration
}

func NewScheduler(pipeline *Pipeline, tracker *Tracker, dataDir string, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{pipeline: pipeline, tracker: tracker, dataDir: dataDir, interval: interval}
}

// Run scans immediately, then on every tick, until the context is
// canceled. A failing file is logged and retried on the next scan.
func (s *Scheduler) Run(ctx context.Context) {
	s.drain(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Ingestion scheduler stopped")
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

func (s *Scheduler) drain(ctx context.Context) {
	files, err := ListFiles(s.dataDir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.dataDir).Msg("data dir scan failed")
		return
	}

	for _, path := range files {
		if ctx.Err() != nil {
			return
		}

		done, err := s.tracker.IsProcessed(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("tracker lookup failed")
			continue
		}
		if done {
			continue
		}

		count, err := s.pipeline.IngestFile(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("ingestion failed, will retry next scan")
			continue
		}
		if err := s.tracker.MarkProcessed(ctx, path, count); err != nil {
			log.Error().Err(err).Str("file", path).Msg("failed to record completion")
		}
	}
}
