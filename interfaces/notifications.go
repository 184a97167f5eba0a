package interfaces

import "context"

// ChangeNotification is one entry of an inbound webhook batch, as posted by
// the remote provider.
type ChangeNotification struct {
	SubscriptionID string           `json:"subscriptionId"`
	ClientState    string           `json:"clientState"`
	ChangeType     string           `json:"changeType"`
	Resource       string           `json:"resource"`
	ResourceData   NotificationData `json:"resourceData"`
}

type NotificationData struct {
	ID string `json:"id"`
}

type NotificationBatch struct {
	Value []ChangeNotification `json:"value"`
}

// NotificationService authenticates and dispatches inbound webhook batches.
// It never performs sync work inline; accepted notifications turn into
// published sync requests.
type NotificationService interface {
	// ProcessBatch validates every notification and requests a sync for each
	// distinct owner with at least one authentic notification. Notifications
	// with an unknown subscription or a mismatched clientState are dropped.
	ProcessBatch(ctx context.Context, batch NotificationBatch) error
}
