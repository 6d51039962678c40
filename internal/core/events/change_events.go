package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpensesChanged   = "expenses.changed"
	EventTypeCategoriesChanged = "categories.changed"
	EventTypeSettingsChanged   = "settings.changed"

	EventTypeTemplateApplied = "template.applied"
	EventTypeOrphansCleaned  = "orphans.cleaned"
)

// ChangeTopics lists the event types that invalidate live subscriptions.
var ChangeTopics = []string{
	EventTypeExpensesChanged,
	EventTypeCategoriesChanged,
	EventTypeSettingsChanged,
}

// ChangeEvent tells subscribers that a user's documents in one collection changed.
// Remote is set on events received from another process so they are not forwarded again.
type ChangeEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Origin string `json:"origin,omitempty"`
	Remote bool   `json:"-"`
}

func NewChangeEvent(eventType, userID string) *ChangeEvent {
	return &ChangeEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"user_id": userID},
		},
		UserID: userID,
	}
}

type TemplateAppliedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Copied   int    `json:"copied"`
	Relinked int    `json:"relinked"`
	Unlinked int    `json:"unlinked"`
}

func NewTemplateAppliedEvent(userID string, copied, relinked, unlinked int) *TemplateAppliedEvent {
	return &TemplateAppliedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeTemplateApplied,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":  userID,
				"copied":   copied,
				"relinked": relinked,
				"unlinked": unlinked,
			},
		},
		UserID:   userID,
		Copied:   copied,
		Relinked: relinked,
		Unlinked: unlinked,
	}
}

type OrphansCleanedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	Removed int    `json:"removed"`
}

func NewOrphansCleanedEvent(userID string, removed int) *OrphansCleanedEvent {
	return &OrphansCleanedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeOrphansCleaned,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"user_id": userID, "removed": removed},
		},
		UserID:  userID,
		Removed: removed,
	}
}
