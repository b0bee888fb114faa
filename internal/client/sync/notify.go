package sync

import (
	"fmt"

	"github.com/iudanet/livedesk/internal/models"
)

// NotificationKind вид ошибки, о которой нужно сообщить пользователю
type NotificationKind int

const (
	// NetworkFailure запрос к серверу не выполнен; состояние не изменилось
	NetworkFailure NotificationKind = iota + 1
	// SubscriptionDrop realtime подписка потеряна; переподписка за вызывающим
	SubscriptionDrop
)

func (k NotificationKind) String() string {
	switch k {
	case NetworkFailure:
		return "network_failure"
	case SubscriptionDrop:
		return "subscription_drop"
	default:
		return "unknown"
	}
}

// Notification сообщение для пользователя
type Notification struct {
	Err        error
	Collection models.Collection
	Kind       NotificationKind
}

func (n Notification) String() string {
	return fmt.Sprintf("%s: %s: %v", n.Collection, n.Kind, n.Err)
}
