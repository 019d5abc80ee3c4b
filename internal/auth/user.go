package auth

import "time"

// Org is the tenant. Templates, overrides and remote rows are all scoped
// to one org.
type Org struct {
	ID        uint64    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	OrgID        uint64    `gorm:"index;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}
