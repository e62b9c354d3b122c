package entities

// User is the profile of an externally authenticated user. ID is the subject
// of the identity token.
type User struct {
	ID    string `gorm:"type:varchar(128);primary_key" json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`

	Timestamp
}
