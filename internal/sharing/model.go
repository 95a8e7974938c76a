package sharing

import (
	"time"

	"github.com/stagematch/backend/internal/users"
)

// SharedProfile records a directed recommendation edge: the owner of UserID's
// profile shared it with the SharedBy user. Profile type is the sharer's,
// denormalized for filtering. Duplicate edges are permitted.
type SharedProfile struct {
	ID           string            `gorm:"column:id;primaryKey;size:190;not null"`
	UserID       string            `gorm:"column:user_id;size:190;not null;index"`
	SharedBy     string            `gorm:"column:shared_by;size:190;not null;index"`
	ProfileType  users.ProfileType `gorm:"column:profile_type;size:32;not null"`
	ShareMessage string            `gorm:"column:share_message;type:text"`
	ShareDate    time.Time         `gorm:"column:share_date;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (SharedProfile) TableName() string {
	return "shared_profiles"
}
