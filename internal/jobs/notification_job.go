package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"foundation_backend/internal/service"
)

// NotificationDispatcher periodically sends scheduled notifications whose
// due time has passed.
type NotificationDispatcher struct {
	notifications *service.NotificationService
	cron          *cron.Cron
	spec          string
	log           zerolog.Logger
}

func NewNotificationDispatcher(
	notifications *service.NotificationService,
	spec string,
	log zerolog.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		cron:          cron.New(),
		spec:          spec,
		log:           log,
	}
}

// Start registers and starts the dispatch job. The cron scheduler runs in
// its own goroutine until Stop is called.
func (d *NotificationDispatcher) Start() error {
	if _, err := d.cron.AddFunc(d.spec, d.run); err != nil {
		return err
	}
	d.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (d *NotificationDispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

func (d *NotificationDispatcher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sent, err := d.notifications.DispatchDue(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("dispatch scheduled notifications")
		return
	}
	if sent > 0 {
		d.log.Info().Int("sent", sent).Msg("dispatched scheduled notifications")
	}
}
