package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/session_guard/internal/es"
	"github.com/Skotchmaster/session_guard/internal/fingerprint"
	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/models"
	"github.com/Skotchmaster/session_guard/internal/mykafka"
	"github.com/Skotchmaster/session_guard/internal/repo"
)

const (
	EventLogin        = "login"
	EventTokenRefresh = "token_refresh"

	eventTypeNewDevice   = "new_device"
	eventTypeNewLocation = "new_location"

	AlertNewDevice      = "new-device"
	AlertNewLocation    = "new-location"
	AlertPossibleReuse  = "possible-reuse"
	AlertDeviceMismatch = "device-mismatch"
)

// EventService classifies auth events, writes the audit trail and raises
// alerts. Kafka and Elasticsearch are optional sinks; when nil they are
// skipped. Everything routed through the queue is fire-and-forget.
type EventService struct {
	Repo     *repo.GormRepo
	Hasher   *fingerprint.Hasher
	Producer *mykafka.Producer
	ES       *elasticsearch.Client

	mu     sync.Mutex
	queue  chan func(context.Context)
	closed bool
	wg     sync.WaitGroup
}

type ObserveInput struct {
	PrincipalID uuid.UUID
	Origin      string
	Descriptor  string
	Fingerprint string
	Kind        string
}

type ObserveResult struct {
	IsNewDevice bool
	IsNewOrigin bool
	EventType   string
}

// Start launches the single background worker draining the async queue.
func (s *EventService) Start() {
	s.mu.Lock()
	if s.queue != nil || s.closed {
		s.mu.Unlock()
		return
	}
	queue := make(chan func(context.Context), 256)
	s.queue = queue
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for job := range queue {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			job(ctx)
			cancel()
		}
	}()
}

// Close stops accepting new jobs, then waits for the worker to drain what is
// already buffered. Drained jobs may still call enqueue (Kafka/ES mirroring);
// those late submissions are dropped rather than sent on the closed channel.
func (s *EventService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	if s.queue != nil {
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// enqueue hands a job to the worker. The non-blocking send happens under the
// mutex so Close can never close the channel out from under it.
func (s *EventService) enqueue(job func(context.Context)) {
	s.mu.Lock()
	if s.closed {
		// shutting down; audit is advisory, drop
		s.mu.Unlock()
		return
	}
	if s.queue == nil {
		s.mu.Unlock()
		// no worker running (tests, early startup): run inline
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		job(ctx)
		cancel()
		return
	}
	select {
	case s.queue <- job:
	default:
		// queue full; audit is advisory, never block authentication
	}
	s.mu.Unlock()
}

// Observe runs on every login and every silent rotation. Classification and
// the audit/alert rows are written synchronously; external sinks go through
// the queue.
func (s *EventService) Observe(ctx context.Context, in ObserveInput) (*ObserveResult, error) {
	l := logging.FromContext(ctx).With("svc", "events.observe", "kind", in.Kind)
	now := time.Now()

	fp := in.Fingerprint
	if fp == "" && in.Descriptor != "" {
		fp = s.Hasher.Fingerprint(in.Descriptor)
	}
	labels := fingerprint.ParseLabels(in.Descriptor)

	trusted, err := s.Repo.IsTrusted(in.PrincipalID, fp)
	if err != nil {
		return nil, fmt.Errorf("trust lookup: %w", err)
	}

	if trusted {
		if err := s.Repo.TouchTrust(in.PrincipalID, fp, in.Origin, now); err != nil {
			l.Warn("touch_trust_failed", "error", err)
		}
		// routine refreshes on trusted devices stay out of the audit trail
		if in.Kind == EventLogin {
			s.record(ctx, &models.LoginEvent{
				PrincipalID: in.PrincipalID,
				Origin:      in.Origin,
				Descriptor:  in.Descriptor,
				Fingerprint: fp,
				Browser:     labels.Browser,
				OS:          labels.OS,
				Trusted:     true,
				EventType:   EventLogin,
				CreatedAt:   now,
			})
		}
		return &ObserveResult{EventType: in.Kind}, nil
	}

	seenDevice, err := s.Repo.HasEventForFingerprint(in.PrincipalID, fp)
	if err != nil {
		return nil, fmt.Errorf("fingerprint history: %w", err)
	}
	seenOrigin, err := s.Repo.HasEventForOrigin(in.PrincipalID, in.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin history: %w", err)
	}

	result := &ObserveResult{
		IsNewDevice: !seenDevice,
		IsNewOrigin: !seenOrigin,
		EventType:   in.Kind,
	}
	// new-device wins over new-location; one alert per event, never both
	switch {
	case result.IsNewDevice:
		result.EventType = eventTypeNewDevice
	case result.IsNewOrigin:
		result.EventType = eventTypeNewLocation
	}

	s.record(ctx, &models.LoginEvent{
		PrincipalID: in.PrincipalID,
		Origin:      in.Origin,
		Descriptor:  in.Descriptor,
		Fingerprint: fp,
		Browser:     labels.Browser,
		OS:          labels.OS,
		Trusted:     false,
		EventType:   result.EventType,
		CreatedAt:   now,
	})

	switch {
	case result.IsNewDevice:
		s.Alert(ctx, in.PrincipalID, AlertNewDevice,
			fmt.Sprintf("Sign-in from a new device (%s on %s)", labels.Browser, labels.OS),
			in.Origin)
	case result.IsNewOrigin:
		s.Alert(ctx, in.PrincipalID, AlertNewLocation,
			fmt.Sprintf("Sign-in from a new network origin %s", in.Origin),
			in.Origin)
	}

	return result, nil
}

// ObserveAsync is the rotation-path entry point: never fails the request.
func (s *EventService) ObserveAsync(in ObserveInput) {
	s.enqueue(func(ctx context.Context) {
		if _, err := s.Observe(ctx, in); err != nil {
			logging.FromContext(ctx).Warn("observe_failed", "kind", in.Kind, "error", err)
		}
	})
}

// Alert writes the alert row and mirrors it to Kafka. The row write is
// synchronous so theft alerts survive the failing request; errors are logged,
// never returned to the authentication path.
func (s *EventService) Alert(ctx context.Context, principalID uuid.UUID, category, message, metadata string) {
	l := logging.FromContext(ctx).With("svc", "events.alert", "category", category)
	alert, err := s.Repo.CreateAlert(principalID, category, message, metadata)
	if err != nil {
		l.Error("alert_write_failed", "error", err)
		return
	}
	if s.Producer != nil {
		s.enqueue(func(ctx context.Context) {
			if err := s.Producer.PublishEvent(ctx, principalID.String(), alert); err != nil {
				logging.FromContext(ctx).Warn("alert_publish_failed", "error", err)
			}
		})
	}
}

func (s *EventService) record(ctx context.Context, event *models.LoginEvent) {
	l := logging.FromContext(ctx).With("svc", "events.record")
	if err := s.Repo.CreateLoginEvent(event); err != nil {
		l.Warn("login_event_write_failed", "error", err)
		return
	}
	if s.Producer != nil {
		ev := *event
		s.enqueue(func(ctx context.Context) {
			if err := s.Producer.PublishEvent(ctx, ev.PrincipalID.String(), ev); err != nil {
				logging.FromContext(ctx).Warn("event_publish_failed", "error", err)
			}
		})
	}
	if s.ES != nil {
		ev := *event
		s.enqueue(func(ctx context.Context) {
			if err := es.IndexLoginEvent(ctx, s.ES, &ev); err != nil {
				logging.FromContext(ctx).Warn("event_index_failed", "error", err)
			}
		})
	}
}
