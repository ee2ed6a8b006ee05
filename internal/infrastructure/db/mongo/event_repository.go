package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

const eventsCollection = "task_events"

// eventDocument is the stored shape of a domain.TaskEvent.
type eventDocument struct {
	ID           string    `bson:"_id"`
	TaskID       uint64    `bson:"task_id"`
	Type         string    `bson:"type"`
	ActorID      uint64    `bson:"actor_id"`
	ActorSubject string    `bson:"actor_subject"`
	FromStatus   string    `bson:"from_status,omitempty"`
	ToStatus     string    `bson:"to_status,omitempty"`
	OccurredAt   time.Time `bson:"occurred_at"`
	RecordedAt   time.Time `bson:"recorded_at"`
}

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	col *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection(eventsCollection)}
}

var _ ports.EventRepository = (*EventRepository)(nil)

// InsertEvent persists a task event to the task_events audit collection.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.TaskEvent) error {
	doc := toDocument(event)
	doc.RecordedAt = time.Now().UTC()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task event: %w", err)
	}
	return nil
}

// ListByTask returns the events of one task ordered by occurrence.
func (r *EventRepository) ListByTask(ctx context.Context, taskID uint64) ([]*domain.TaskEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find task events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode task events: %w", err)
	}

	events := make([]*domain.TaskEvent, len(docs))
	for i := range docs {
		events[i] = docs[i].toDomain()
	}
	return events, nil
}

// EnsureIndexes creates the indexes used by ListByTask.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func toDocument(e *domain.TaskEvent) eventDocument {
	return eventDocument{
		ID:           e.ID,
		TaskID:       e.TaskID,
		Type:         string(e.Type),
		ActorID:      e.ActorID,
		ActorSubject: e.ActorSubject,
		FromStatus:   string(e.FromStatus),
		ToStatus:     string(e.ToStatus),
		OccurredAt:   e.OccurredAt.UTC(),
	}
}

func (d *eventDocument) toDomain() *domain.TaskEvent {
	return &domain.TaskEvent{
		ID:           d.ID,
		TaskID:       d.TaskID,
		Type:         domain.TaskEventType(d.Type),
		ActorID:      d.ActorID,
		ActorSubject: d.ActorSubject,
		FromStatus:   domain.TaskStatus(d.FromStatus),
		ToStatus:     domain.TaskStatus(d.ToStatus),
		OccurredAt:   d.OccurredAt,
	}
}
