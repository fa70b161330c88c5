package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/catalog"
	"primerjalnik/server/internal/models"
	"primerjalnik/server/internal/snapshot"
)

// JobType represents the different maintenance jobs
type JobType int

const (
	JobTypeRefreshMakes JobType = iota
	JobTypePruneSnapshots
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeRefreshMakes:
		return "refresh_makes"
	case JobTypePruneSnapshots:
		return "prune_snapshots"
	default:
		return "unknown"
	}
}

// Scheduler manages the periodic maintenance jobs: warming the make caches
// for the form dropdowns and pruning expired listing snapshots.
type Scheduler struct {
	catalog   *catalog.Client
	snapshots *snapshot.Writer
	retention time.Duration
	logger    *logrus.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	jobMutex  sync.Mutex // Ensures sequential job execution
}

// NewScheduler creates a new scheduler
func NewScheduler(catalogClient *catalog.Client, snapshots *snapshot.Writer, retention time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		catalog:   catalogClient,
		snapshots: snapshots,
		retention: retention,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Warm the make caches once at startup
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup make cache refresh")
		s.refreshMakes()
		s.logger.Info("Startup make cache refresh completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	// Snapshot prune at midnight
	if t.Hour() == 0 && t.Minute() == 0 {
		s.logger.WithField("job_type", JobTypePruneSnapshots.String()).Info("Starting scheduled job")
		s.pruneSnapshots()
	}

	// Make cache refresh every hour
	if t.Minute() == 0 {
		s.logger.WithField("job_type", JobTypeRefreshMakes.String()).Info("Starting scheduled job")
		s.refreshMakes()
	}
}

func (s *Scheduler) refreshMakes() {
	categories := []models.Category{models.CategoryCar, models.CategoryMotorcycle, models.CategoryTruck}
	for _, category := range categories {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		makes, err := s.catalog.RefreshMakes(ctx, category)
		cancel()
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"category": category,
				"job_type": JobTypeRefreshMakes.String(),
			}).Error("Make cache refresh failed")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"category": category,
			"makes":    len(makes),
			"job_type": JobTypeRefreshMakes.String(),
		}).Info("Make cache refreshed")
	}
}

func (s *Scheduler) pruneSnapshots() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := s.snapshots.Prune(ctx, s.retention)
	if err != nil {
		s.logger.WithError(err).WithField("job_type", JobTypePruneSnapshots.String()).Error("Snapshot prune failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"pruned":   pruned,
		"job_type": JobTypePruneSnapshots.String(),
	}).Info("Snapshot prune completed")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
