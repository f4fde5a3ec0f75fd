package services

import (
	"context"
	"fmt"

	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
)

// Notification message texts. These are user-visible strings the clients
// display verbatim.
const (
	msgPermissionRequested = "is asking permission to join your group"
	msgRequestForwarded    = "your request is sent to the group admin"
	msgAddedToGroup        = "you are added to a group"
	msgStartedFollowing    = "started following you"
)

func msgPermissionGranted(groupName string) string {
	return fmt.Sprintf("your request is accepted for group %s", groupName)
}

// Notifier persists notification records derived from state transitions.
// Emit runs against the transaction-bound store of the transition that
// produced the notifications, so a failed write rolls the whole transition
// back (fail-closed) and the caller never sees a transition without its
// notifications. External delivery (email, push) is a separate collaborator
// and is not part of the atomic unit.
type Notifier struct{}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Emit(ctx context.Context, store repositories.RelationshipStore, notifications []models.Notification) error {
	for i := range notifications {
		if err := store.CreateNotification(ctx, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}
