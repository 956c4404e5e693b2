package notification

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"vendfleet/internal/infra/repository"
	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/pkg/pgconv"
	"vendfleet/internal/usecase/shared"

	"github.com/SherClockHolmes/webpush-go"
)

// Sender abstracts webpush delivery so tests can swap in a fake transport.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Dispatcher drains the notification_jobs table and fans deliveries out to a
// worker pool. Jobs are claimed with SKIP LOCKED, so running one dispatcher
// per instance is safe.
type Dispatcher struct {
	jobs    *repository.NotificationRepository
	subs    shared.PushSubscriptionRepository
	sender  Sender
	clock   clock.Clock
	cfg     config.PushConfig
	queue   chan repository.NotificationJob
	options *webpush.Options
}

func NewDispatcher(
	jobs *repository.NotificationRepository,
	subs shared.PushSubscriptionRepository,
	sender Sender,
	clk clock.Clock,
	cfg config.PushConfig,
) *Dispatcher {
	return &Dispatcher{
		jobs:   jobs,
		subs:   subs,
		sender: sender,
		clock:  clk,
		cfg:    cfg,
		queue:  make(chan repository.NotificationJob, cfg.Workers),
		options: &webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             60,
		},
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	if !d.cfg.Enabled {
		slog.Info("push delivery disabled, notification jobs will accumulate")
		return
	}

	for i := 0; i < d.cfg.Workers; i++ {
		go d.worker(ctx, i)
	}
	go d.poll(ctx)
}

func (d *Dispatcher) poll(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drainDueJobs(ctx)
		}
	}
}

// drainDueJobs claims jobs until none are due, handing each to the pool.
func (d *Dispatcher) drainDueJobs(ctx context.Context) {
	for {
		job, err := d.jobs.ClaimDueJob(ctx, d.clock.Now())
		if err != nil {
			if !pgconv.IsNoRows(err) {
				slog.Error("failed to claim notification job", "error", err)
			}
			return
		}

		select {
		case d.queue <- *job:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	slog.Debug("notification worker started", "worker", id)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("notification worker shutting down", "worker", id)
			return
		case job := <-d.queue:
			d.deliver(ctx, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job repository.NotificationJob) {
	subs, err := d.subs.ListAll(ctx)
	if err != nil {
		slog.Error("failed to list push subscriptions", "error", err, "job_id", job.ID)
		return
	}

	for _, sub := range subs {
		d.send(ctx, sub, job.Payload)
	}

	if err := d.jobs.MarkJobDone(ctx, job.ID, d.clock.Now()); err != nil {
		slog.Error("failed to mark notification job done", "error", err, "job_id", job.ID)
	}
}

func (d *Dispatcher) send(ctx context.Context, sub shared.PushSubscriptionRecord, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(payload, wpSub, d.options)
	if err != nil {
		slog.Warn("failed to send push notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	// 410 Gone: the browser dropped the subscription.
	if resp.StatusCode == http.StatusGone {
		slog.Info("deleting expired push subscription", "endpoint", sub.Endpoint)
		if err := d.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			slog.Warn("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
