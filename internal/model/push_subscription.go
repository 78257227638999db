package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Each subscription watches a set of users and is notified when a watched
// user's resolved status changes.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Users []*User `gorm:"many2many:subscription_user_mapping;"`
}
