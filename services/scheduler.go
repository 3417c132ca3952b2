package services

import (
	"context"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/utils"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the sweeps on an in-process cron. The same sweep methods
// are exposed over HTTP for deployments that prefer an external trigger.
type Scheduler struct {
	cron      *cron.Cron
	publisher *PublisherService
	metrics   *MetricsService
}

func NewScheduler(publisher *PublisherService, metrics *MetricsService) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *Scheduler) Start() {
	s.cron.AddFunc("@every 1m", func() {
		s.runSweep("scheduled publish", s.publisher.RunScheduledSweep)
	})
	s.cron.AddFunc("@every 10m", func() {
		s.runSweep("failure recovery", s.publisher.RunRecoverySweep)
	})
	s.cron.AddFunc("@every 30m", func() {
		s.runSweep("metrics poll", s.metrics.RunMetricsSweep)
	})

	s.cron.Start()
	utils.Infof("Scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runSweep(name string, sweep func(context.Context) (*models.SweepSummary, error)) {
	summary, err := sweep(context.Background())
	if err != nil {
		utils.Errorf("%s sweep failed: %v", name, err)
		return
	}
	if summary.Processed > 0 {
		utils.Infof("%s sweep processed %d posts", name, summary.Processed)
	}
}
