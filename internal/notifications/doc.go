// Package notifications delivers job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The worker pipeline depends only on the small Service interface,
// so alternative transports can be added without touching job code.
package notifications
