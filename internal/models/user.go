package models

import "time"

// User is a registered account. The Online column is a best-effort mirror of the
// in-memory presence registry, updated asynchronously; the registry is authoritative
// while the process is running.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"type:text;not null" json:"username"`
	PhoneNumber string    `gorm:"type:text;uniqueIndex;not null" json:"phoneNumber"`
	Password    string    `gorm:"type:text;not null" json:"-"`
	Avatar      string    `gorm:"type:text" json:"avatar"`
	Online      bool      `gorm:"not null;default:false" json:"online"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PublicUser is the subset of User safe to hand to other users.
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Public strips credentials and contact details from a User.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
