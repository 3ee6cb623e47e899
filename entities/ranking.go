package entities

import "time"

// Ranking is one user's personal score for one city. (UserID, CityID) is unique.
type Ranking struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:uq_user_city_ranking;index" json:"user_id"`
	CityID         uint      `gorm:"not null;uniqueIndex:uq_user_city_ranking;index" json:"city_id"`
	PersonalScore  float64   `gorm:"not null" json:"personal_score"`
	ObjectiveScore *float64  `json:"objective_score"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	City           *City     `gorm:"constraint:OnDelete:CASCADE" json:"city,omitempty"`
}
