package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/facility-checklists/internal/application"
)

// DefaultDigestSchedule runs the digest at the top of every hour.
const DefaultDigestSchedule = "@hourly"

// DigestSource computes the pending work of every technician.
type DigestSource interface {
	Digest(ctx context.Context) ([]application.TechnicianDigest, error)
}

// Digest periodically evaluates every technician's agenda and logs the pending counts.
type Digest struct {
	cron     *cron.Cron
	schedule string
	source   DigestSource
	logger   *slog.Logger
	timeout  time.Duration

	mu   sync.Mutex
	last []application.TechnicianDigest
}

// NewDigest validates schedule (standard five-field cron or a descriptor such
// as @hourly) and prepares a job evaluated in loc.
func NewDigest(schedule string, source DigestSource, loc *time.Location, logger *slog.Logger) (*Digest, error) {
	if source == nil {
		return nil, fmt.Errorf("digest source is required")
	}
	if schedule == "" {
		schedule = DefaultDigestSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse digest schedule %q: %w", schedule, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job", "digest")

	return &Digest{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule: schedule,
		source:   source,
		logger:   logger,
		timeout:  time.Minute,
	}, nil
}

// Start schedules the job; it runs until Stop.
func (d *Digest) Start(ctx context.Context) error {
	if _, err := d.cron.AddFunc(d.schedule, func() { _ = d.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	d.cron.Start()
	d.logger.InfoContext(ctx, "digest scheduled", "schedule", d.schedule)
	return nil
}

// Stop prevents further runs and waits for a running digest to finish or ctx to end.
func (d *Digest) Stop(ctx context.Context) {
	done := d.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	d.logger.Info("digest stopped")
}

// RunOnce evaluates every technician immediately.
func (d *Digest) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := time.Now()
	digests, err := d.source.Digest(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "digest failed", "error", err)
		return err
	}

	pending := 0
	for _, dg := range digests {
		pending += dg.Pending
		if dg.Pending > 0 {
			d.logger.InfoContext(ctx, "technician has pending checklists",
				"user_id", dg.UserID,
				"username", dg.Username,
				"pending", dg.Pending,
				"pending_today", dg.PendingToday,
			)
		}
	}
	d.logger.InfoContext(ctx, "digest completed",
		"technicians", len(digests),
		"pending_total", pending,
		"duration", time.Since(started),
	)

	d.mu.Lock()
	d.last = digests
	d.mu.Unlock()
	return nil
}

// Last returns the result of the latest successful run.
func (d *Digest) Last() []application.TechnicianDigest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]application.TechnicianDigest(nil), d.last...)
}
