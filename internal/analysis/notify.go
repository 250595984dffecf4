package analysis

// NotifyLevel grades a user-facing progress notification.
type NotifyLevel string

const (
	NotifyInfo    NotifyLevel = "info"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
)

// Notification is a transient progress message emitted while the retry
// sequence runs, so the user is not left waiting silently through backoffs.
type Notification struct {
	Level   NotifyLevel
	Message string
}

// NotifyFunc receives notifications. Implementations must not block; the
// orchestrator calls it inline between attempts.
type NotifyFunc func(Notification)
