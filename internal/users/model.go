package users

import "time"

// ProfileType discriminates the two mutually exclusive profile kinds a user may adopt.
type ProfileType string

const (
	// ProfileTypeBand marks a user whose profile is a band.
	ProfileTypeBand ProfileType = "band"
	// ProfileTypeGigProvider marks a user whose profile is a gig provider.
	ProfileTypeGigProvider ProfileType = "gigProvider"
)

// Valid reports whether the value is one of the two known profile kinds.
func (p ProfileType) Valid() bool {
	return p == ProfileTypeBand || p == ProfileTypeGigProvider
}

// Opposite returns the other profile kind. Sharing is only permitted across kinds.
func (p ProfileType) Opposite() ProfileType {
	if p == ProfileTypeBand {
		return ProfileTypeGigProvider
	}
	return ProfileTypeBand
}

// User maps an external authentication subject to a marketplace account.
// The profile type stays empty until the first profile write.
type User struct {
	ID             string      `gorm:"column:id;primaryKey;size:190;not null"`
	ExternalAuthID string      `gorm:"column:external_auth_id;size:190;not null;uniqueIndex"`
	Name           string      `gorm:"column:name;size:320"`
	ImageURL       string      `gorm:"column:image_url;size:512"`
	Email          string      `gorm:"column:email;size:320"`
	ProfileType    ProfileType `gorm:"column:profile_type;size:32"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing marketplace users.
func (User) TableName() string {
	return "users"
}
