package entities

const (
	SourceManual    = "manual"
	SourceDetection = "detection"
)

// FoodItem is a row of a user's inventory. Dates are stored as YYYY/MM/DD
// strings; ExpiryDate is nil when the date is unknown.
type FoodItem struct {
	ID           string  `gorm:"type:varchar(36);primary_key" json:"id"`
	UserID       string  `gorm:"type:varchar(128);index;not null" json:"user_id"`
	Name         string  `gorm:"not null" json:"name"`
	Quantity     int     `gorm:"not null" json:"quantity"`
	ExpiryDate   *string `gorm:"type:varchar(10)" json:"expiry_date"`
	AddedDate    string  `gorm:"type:varchar(10);not null" json:"added_date"`
	AlertEnabled bool    `gorm:"not null;default:false" json:"alert_enabled"`
	Source       string  `gorm:"type:varchar(16);not null;default:'manual'" json:"source"`
	ImageURL     string  `json:"image_url,omitempty"`

	Timestamp
}
