package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/realtime"
	"github.com/yungbote/recommend-backend/internal/realtime/bus"
)

type Event struct {
	Kind          types.EventKind
	ActivityID    uuid.UUID
	ActorID       *uuid.UUID
	ObjectTable   string
	ObjectID      *uuid.UUID
	RelatedUserID *uuid.UUID
	Payload       map[string]any
}

// EventRecorder persists activity events. Record writes inside the caller's
// transaction; Publish fans the stored rows out on the bus and must only be
// called once that transaction committed.
type EventRecorder interface {
	Record(dbc dbctx.Context, ev Event) (*types.EventLog, error)
	Publish(ctx context.Context, rows ...*types.EventLog)
	RecordAndPublish(ctx context.Context, ev Event) error
}

type eventRecorder struct {
	log  *logger.Logger
	repo repos.EventLogRepo
	bus  bus.Bus
}

func NewEventRecorder(baseLog *logger.Logger, repo repos.EventLogRepo, b bus.Bus) EventRecorder {
	return &eventRecorder{
		log:  baseLog.With("service", "EventRecorder"),
		repo: repo,
		bus:  b,
	}
}

func (r *eventRecorder) Record(dbc dbctx.Context, ev Event) (*types.EventLog, error) {
	row := &types.EventLog{
		Kind:          ev.Kind,
		ActivityID:    ev.ActivityID,
		ActorID:       ev.ActorID,
		ObjectTable:   ev.ObjectTable,
		ObjectID:      ev.ObjectID,
		RelatedUserID: ev.RelatedUserID,
	}
	if len(ev.Payload) > 0 {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", ev.Kind, err)
		}
		row.Payload = datatypes.JSON(raw)
	}
	if _, err := r.repo.Create(dbc, []*types.EventLog{row}); err != nil {
		return nil, fmt.Errorf("record %s: %w", ev.Kind, err)
	}
	return row, nil
}

func (r *eventRecorder) Publish(ctx context.Context, rows ...*types.EventLog) {
	if r.bus == nil {
		return
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		msg := realtime.Message{
			Channel: realtime.EventsChannel,
			Event:   realtime.EventActivity,
			Data:    row,
		}
		if err := r.bus.Publish(ctx, msg); err != nil {
			r.log.Warn("Publish event failed", "kind", row.Kind, "error", err)
		}
	}
}

func (r *eventRecorder) RecordAndPublish(ctx context.Context, ev Event) error {
	row, err := r.Record(dbctx.Context{Ctx: ctx}, ev)
	if err != nil {
		return err
	}
	r.Publish(ctx, row)
	return nil
}
