package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type Scheduler struct {
	db         *gorm.DB
	windowDays int
	cron       *cron.Cron

	clientExpiry guard
	planExpiry   guard
	leadDigest   guard
}

func NewScheduler(db *gorm.DB, windowDays int) *Scheduler {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Scheduler{db: db, windowDays: windowDays, cron: cron.New()}
}

// Start registers the daily jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"0 9 * * *", "client expiry", s.runClientExpiry},
		{"5 9 * * *", "plan expiry", s.runPlanExpiry},
		{"0 19 * * *", "lead digest", s.runLeadDigest},
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.fn); err != nil {
			log.Printf("Could not initialize %s cron: %v", j.name, err)
			return err
		}
	}

	s.cron.Start()
	log.Printf("Cron started with %d jobs", len(jobs))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runClientExpiry() {
	now := time.Now()
	if !s.clientExpiry.run(now, func() {
		if _, err := CheckExpiringClients(s.db, now, s.windowDays); err != nil {
			log.Printf("Client expiry job failed: %v", err)
		}
	}) {
		log.Println("Client expiry job skipped, already ran in the last 23h")
	}
}

func (s *Scheduler) runPlanExpiry() {
	now := time.Now()
	if !s.planExpiry.run(now, func() {
		if _, err := CheckExpiringPlans(s.db, now); err != nil {
			log.Printf("Plan expiry job failed: %v", err)
		}
	}) {
		log.Println("Plan expiry job skipped, already ran in the last 23h")
	}
}

func (s *Scheduler) runLeadDigest() {
	now := time.Now()
	if !s.leadDigest.run(now, func() {
		if _, err := SendLeadDigests(s.db, now); err != nil {
			log.Printf("Lead digest job failed: %v", err)
		}
	}) {
		log.Println("Lead digest job skipped, already ran in the last 23h")
	}
}
