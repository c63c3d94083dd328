package realtime

// Named realtime streams. Every stream is scoped to the connected user.
const (
	StreamNotifications = "notifications"
	StreamDeliveries    = "deliveries"
	StreamInventory     = "inventory"
)

// KnownStreams lists the streams a client may subscribe to.
var KnownStreams = map[string]struct{}{
	StreamNotifications: {},
	StreamDeliveries:    {},
	StreamInventory:     {},
}
