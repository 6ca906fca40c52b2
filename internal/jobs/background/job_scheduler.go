package background

import (
	"context"
	"log"
	"time"

	"catalogd/internal/models"

	"github.com/go-co-op/gocron/v2"
)

// TreeWarmer re-expands the top-level category trees, filling the cache as a
// side effect.
type TreeWarmer interface {
	ListRoots(ctx context.Context) ([]*models.Category, error)
}

// AssetIndex lists the media asset ids the database still references.
type AssetIndex interface {
	ImageAssetIDs(ctx context.Context) ([]string, error)
}

// MediaStore is the slice of the media service the sweep needs.
type MediaStore interface {
	ListAssetIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, assetID string) error
}

// JobScheduler runs the catalog's periodic maintenance jobs: warming the
// category tree cache and sweeping media assets no image row references
// anymore (uploads whose persistence step failed leave such orphans behind).
type JobScheduler struct {
	scheduler gocron.Scheduler
	warmer    TreeWarmer
	assets    AssetIndex
	media     MediaStore
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(warmer TreeWarmer, assets AssetIndex, media MediaStore) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		warmer:    warmer,
		assets:    assets,
		media:     media,
	}

	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) registerJobs() error {
	if _, err := js.scheduler.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(js.warmTreeCache),
	); err != nil {
		return err
	}

	if _, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.sweepOrphanedMedia),
	); err != nil {
		return err
	}
	return nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (js *JobScheduler) Stop() {
	if err := js.scheduler.Shutdown(); err != nil {
		log.Printf("Job scheduler shutdown failed: %v", err)
	}
}

// warmTreeCache re-expands the top-level categories so the first request
// after an invalidation doesn't pay for the full tree walk.
func (js *JobScheduler) warmTreeCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	if _, err := js.warmer.ListRoots(ctx); err != nil {
		log.Printf("Tree cache warm failed: %v", err)
	}
}

// sweepOrphanedMedia deletes stored objects whose asset id no longer appears
// on any image row.
func (js *JobScheduler) sweepOrphanedMedia() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	referenced, err := js.assets.ImageAssetIDs(ctx)
	if err != nil {
		log.Printf("Orphaned media sweep: listing referenced assets failed: %v", err)
		return
	}
	known := make(map[string]bool, len(referenced))
	for _, id := range referenced {
		known[id] = true
	}

	stored, err := js.media.ListAssetIDs(ctx)
	if err != nil {
		log.Printf("Orphaned media sweep: listing stored assets failed: %v", err)
		return
	}

	removed := 0
	for _, assetID := range stored {
		if known[assetID] {
			continue
		}
		if err := js.media.Delete(ctx, assetID); err != nil {
			log.Printf("Orphaned media sweep: deleting %s failed: %v", assetID, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("Orphaned media sweep removed %d assets", removed)
	}
}
