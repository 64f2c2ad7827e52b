package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"cfp-scheduler/core/logger"
	"cfp-scheduler/core/storage"
	"cfp-scheduler/core/utils"
	"cfp-scheduler/modules/schedule/entity"

	"github.com/gosimple/slug"
)

// ReleaseEvent is handed to every observer once a freeze has committed
type ReleaseEvent struct {
	Released *entity.Schedule
	WIP      *entity.Schedule
}

// ObserverRejection is a structured complaint from an observer about a release
type ObserverRejection struct {
	Observer string `json:"observer"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// ReleaseObserver reacts to a new release. Returning nil means accepted.
type ReleaseObserver interface {
	Name() string
	OnRelease(ctx context.Context, event ReleaseEvent) *ObserverRejection
}

// notifyObservers runs observers in registration order; a rejection does not stop the rest
func (s *ScheduleService) notifyObservers(ctx context.Context, event ReleaseEvent) []ObserverRejection {
	rejections := []ObserverRejection{}
	for _, o := range s.observers {
		rejection := o.OnRelease(ctx, event)
		if rejection == nil {
			continue
		}
		if rejection.Observer == "" {
			rejection.Observer = o.Name()
		}
		logger.Warn("ScheduleService:NotifyObservers:Rejected", "observer", rejection.Observer, "reason", rejection.Reason, "error", rejection.Err)
		rejections = append(rejections, *rejection)
	}
	return rejections
}

// LogObserver records releases in the application log
type LogObserver struct{}

func (LogObserver) Name() string { return "log" }

func (LogObserver) OnRelease(_ context.Context, event ReleaseEvent) *ObserverRejection {
	logger.Info("Schedule released",
		"event_id", event.Released.EventID,
		"version", event.Released.Name(),
		"release_id", event.Released.ID,
		"published", event.Released.Published,
	)
	return nil
}

// ExportPublisher uploads the public export of every release
type ExportPublisher struct {
	service  *ScheduleService
	uploader storage.Uploader
	prefix   string
}

func NewExportPublisher(service *ScheduleService, uploader storage.Uploader, prefix string) *ExportPublisher {
	return &ExportPublisher{service: service, uploader: uploader, prefix: prefix}
}

func (p *ExportPublisher) Name() string { return "export" }

func (p *ExportPublisher) OnRelease(ctx context.Context, event ReleaseEvent) *ObserverRejection {
	data, appErr := p.service.BuildData(ctx, event.Released, ExportOptions{})
	if appErr != nil {
		return &ObserverRejection{Reason: "could not build export", Err: appErr}
	}

	body, err := json.Marshal(data)
	if err != nil {
		return &ObserverRejection{Reason: "could not encode export", Err: err}
	}

	suffix, err := utils.ObjectKeySuffix()
	if err != nil {
		return &ObserverRejection{Reason: "could not generate export key", Err: err}
	}

	key := path.Join(p.prefix, fmt.Sprint(event.Released.EventID), fmt.Sprintf("%s-%s.json", slug.Make(event.Released.Name()), suffix))
	location, err := p.uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		return &ObserverRejection{Reason: "could not upload export", Err: err}
	}

	logger.Info("ExportPublisher:OnRelease:Uploaded", "event_id", event.Released.EventID, "location", location)
	return nil
}
