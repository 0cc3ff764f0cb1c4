// Package notifications pushes pipeline milestones to ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so
// callers publish unconditionally. Delivery failures are returned to the
// caller, which logs them and carries on; a lost notification never fails a
// pipeline command.
package notifications
