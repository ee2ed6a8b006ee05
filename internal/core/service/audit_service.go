package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

type auditService struct {
	repo ports.EventRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that writes to repo.
func NewAuditService(repo ports.EventRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists one audit event, filling in the id and timestamp when missing.
func (s *auditService) Record(ctx context.Context, event domain.TaskEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	s.log.Debug().
		Str("event_id", event.ID).
		Uint64("task_id", event.TaskID).
		Str("type", string(event.Type)).
		Msg("audit event stored")
	return nil
}

// publishEvent builds an audit event for the caller and hands it to pub. The
// actor id comes from the principal's cached identity; a failed resolution
// leaves it zero rather than failing the request.
func publishEvent(
	ctx context.Context,
	pub ports.EventPublisher,
	engine *authz.Engine,
	log zerolog.Logger,
	p *authz.Principal,
	taskID uint64,
	typ domain.TaskEventType,
	from, to domain.TaskStatus,
) {
	if pub == nil || p == nil {
		return
	}
	actorID, err := engine.ResolveUserID(ctx, p)
	if err != nil {
		log.Warn().Err(err).Uint64("task_id", taskID).Msg("audit actor unresolved")
	}
	pub.Publish(domain.TaskEvent{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		Type:         typ,
		ActorID:      actorID,
		ActorSubject: p.Subject,
		FromStatus:   from,
		ToStatus:     to,
		OccurredAt:   time.Now().UTC(),
	})
}
