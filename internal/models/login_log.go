package models

import "time"

// LoginLog is the audit record written remotely on every login.
type LoginLog struct {
	Username    string    `json:"username" bson:"username"`
	DisplayName string    `json:"displayName" bson:"display_name"`
	Role        Role      `json:"role" bson:"role"`
	CreatedAt   time.Time `json:"timestamp" bson:"created_at"`
}
