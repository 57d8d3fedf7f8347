// Package notifications delivers run milestones via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set, so the run
// command can emit events without guarding every call.
//
// Extend this package if you need alternative transports; callers depend
// only on the Service interface.
package notifications
