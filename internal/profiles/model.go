package profiles

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxAudioTracks bounds the ordered audio track list embedded on a profile.
const MaxAudioTracks = 4

const mediaFlag = "alt=media"

// AudioTrack is a named reference to an externally stored audio file.
type AudioTrack struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

// WithMediaFlag returns the track with its URL rewritten to carry the
// storage media flag. Applying the rewrite twice yields the same URL.
func (t AudioTrack) WithMediaFlag() AudioTrack {
	if strings.Contains(t.URL, mediaFlag) {
		return t
	}
	t.URL = t.URL + "&" + mediaFlag
	return t
}

// TrackList stores an ordered audio track sequence as a JSON column.
type TrackList []AudioTrack

// Value serializes the list for storage. An absent list stores as an empty array.
func (l TrackList) Value() (driver.Value, error) {
	if l == nil {
		l = TrackList{}
	}
	encoded, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan materializes the stored JSON into an ordered list, empty when absent.
func (l *TrackList) Scan(value interface{}) error {
	return scanJSONColumn(value, l)
}

// StringList stores an ordered sequence of strings as a JSON column.
type StringList []string

// Value serializes the list for storage. An absent list stores as an empty array.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	encoded, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan materializes the stored JSON into an ordered list, empty when absent.
func (l *StringList) Scan(value interface{}) error {
	return scanJSONColumn(value, l)
}

func scanJSONColumn(value interface{}, target interface{}) error {
	if value == nil {
		return nil
	}
	switch encoded := value.(type) {
	case []byte:
		if len(encoded) == 0 {
			return nil
		}
		return json.Unmarshal(encoded, target)
	case string:
		if encoded == "" {
			return nil
		}
		return json.Unmarshal([]byte(encoded), target)
	default:
		return fmt.Errorf("profiles: unsupported column type %T", value)
	}
}

// Band is the profile row for the band side of the marketplace,
// owned 1:1 by a user.
type Band struct {
	ID           string     `gorm:"column:id;primaryKey;size:190;not null"`
	UserID       string     `gorm:"column:user_id;size:190;not null;uniqueIndex"`
	Name         string     `gorm:"column:name;size:320;not null"`
	ImageURL     string     `gorm:"column:image_url;size:512"`
	HeaderImage  string     `gorm:"column:header_image;size:512"`
	Location     string     `gorm:"column:location;size:320"`
	Latitude     *float64   `gorm:"column:latitude"`
	Longitude    *float64   `gorm:"column:longitude"`
	Description  string     `gorm:"column:description;type:text"`
	Website      string     `gorm:"column:website;size:512"`
	Email        string     `gorm:"column:email;size:320"`
	PhoneNumber  string     `gorm:"column:phone_number;size:64"`
	FacebookURL  string     `gorm:"column:facebook_url;size:512"`
	InstagramURL string     `gorm:"column:instagram_url;size:512"`
	Genre        string     `gorm:"column:genre;size:190"`
	VideoURL     string     `gorm:"column:video_url;size:512"`
	BandMembers  StringList `gorm:"column:band_members;type:text"`
	Photos       StringList `gorm:"column:photos;type:text"`
	AudioTracks  TrackList  `gorm:"column:audio_tracks;type:text"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Band) TableName() string {
	return "bands"
}

// GigProvider is the profile row for the venue/provider side of the
// marketplace, owned 1:1 by a user.
type GigProvider struct {
	ID           string     `gorm:"column:id;primaryKey;size:190;not null"`
	UserID       string     `gorm:"column:user_id;size:190;not null;uniqueIndex"`
	Name         string     `gorm:"column:name;size:320;not null"`
	ImageURL     string     `gorm:"column:image_url;size:512"`
	HeaderImage  string     `gorm:"column:header_image;size:512"`
	Location     string     `gorm:"column:location;size:320"`
	Latitude     *float64   `gorm:"column:latitude"`
	Longitude    *float64   `gorm:"column:longitude"`
	Description  string     `gorm:"column:description;type:text"`
	Website      string     `gorm:"column:website;size:512"`
	Email        string     `gorm:"column:email;size:320"`
	PhoneNumber  string     `gorm:"column:phone_number;size:64"`
	FacebookURL  string     `gorm:"column:facebook_url;size:512"`
	InstagramURL string     `gorm:"column:instagram_url;size:512"`
	Services     string     `gorm:"column:services;type:text"`
	Photos       StringList `gorm:"column:photos;type:text"`
	AudioTracks  TrackList  `gorm:"column:audio_tracks;type:text"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (GigProvider) TableName() string {
	return "gig_providers"
}
