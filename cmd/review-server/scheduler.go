package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/leadnews/newsreview/pkg/newsreview"
	"github.com/leadnews/newsreview/pkg/newsreview/scan"
)

// Scheduler runs the periodic scan and dictionary refresh jobs.
type Scheduler struct {
	cron    *cron.Cron
	scanner *scan.Scanner
	service newsreview.Service
	logger  *slog.Logger

	scanSpec    string
	refreshSpec string
	jobTimeout  time.Duration

	scanEntryID    cron.EntryID
	refreshEntryID cron.EntryID
}

// NewScheduler creates a scheduler. An empty spec disables that job.
func NewScheduler(scanner *scan.Scanner, service newsreview.Service, scanSpec, refreshSpec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		scanner:     scanner,
		service:     service,
		logger:      logger.With("component", "scheduler"),
		scanSpec:    scanSpec,
		refreshSpec: refreshSpec,
		jobTimeout:  5 * time.Minute,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	var err error
	if s.scanSpec != "" {
		if s.scanEntryID, err = s.cron.AddFunc(s.scanSpec, s.runScan); err != nil {
			return err
		}
	}
	if s.refreshSpec != "" {
		if s.refreshEntryID, err = s.cron.AddFunc(s.refreshSpec, s.runRefresh); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "scan", s.scanSpec, "dictionary_refresh", s.refreshSpec)
	return nil
}

// NextScanTime returns when the scan job runs next.
func (s *Scheduler) NextScanTime() time.Time {
	return s.cron.Entry(s.scanEntryID).Next
}

// Stop stops the cron loop and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	logger := s.logger.With("job", "scan", "run_id", uuid.NewString())
	result, err := s.scanner.Scan(ctx, scan.ScanOptions{})
	if err != nil {
		logger.Error("scan failed", "err", err)
		return
	}
	logger.Info("scan completed",
		"found", result.TotalFound,
		"processed", result.TotalProcessed,
		"failed", result.TotalFailed)
}

func (s *Scheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	logger := s.logger.With("job", "dictionary_refresh", "run_id", uuid.NewString())
	n, err := s.service.RefreshDictionary(ctx)
	if err != nil {
		logger.Error("dictionary refresh failed, keeping previous terms", "err", err)
		return
	}
	logger.Info("dictionary refreshed", "terms", n)
}
