package domain

import "time"

// Technician models a support technician profile. A technician without a
// linked UserID cannot be assigned: there is no identity to authorize against.
type Technician struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	UserID    *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
