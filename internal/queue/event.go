// Package queue defines message payloads exchanged over the message broker
// and the background consumer that persists them.
package queue

import "time"

// ActivityQueueName is the durable queue carrying authentication activity.
const ActivityQueueName = "auth.activity"

// ActivityEvent is published after every authentication-relevant operation
// (register, login, refresh, logout, password change, deactivation). It
// carries enough information for the audit consumer to persist a
// user_activities row without querying the primary database.
type ActivityEvent struct {
	UserID       uint64    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Username     string    `json:"username"`
	IPAddress    string    `json:"ip_address,omitempty"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	IsSuccessful bool      `json:"is_successful"`
	Details      string    `json:"details,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
