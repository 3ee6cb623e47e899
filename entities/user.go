package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an account that owns city rankings.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Username           string    `gorm:"not null;index" json:"username"`
	UsernameNormalized string    `gorm:"not null;uniqueIndex" json:"-"`
	Email              *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	HashedPassword     string    `gorm:"not null" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	Rankings           []Ranking `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// NormalizeUsername is the key usernames are compared by; "JohnDoe" and "johndoe" collide.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (u *User) BeforeSave(tx *gorm.DB) (err error) {
	u.UsernameNormalized = NormalizeUsername(u.Username)
	return
}
