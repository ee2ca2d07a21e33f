package models

import "time"

// User is the account document persisted in the users collection.
// PasswordHash and the reset-token fields never leave the auth layer;
// every externally visible read goes through Sanitize first.
type User struct {
	ID               string     `bson:"_id" json:"id"`
	Name             string     `bson:"name" json:"name"`
	Email            string     `bson:"email" json:"email"`
	PasswordHash     string     `bson:"password_hash" json:"-"`
	Course           string     `bson:"course,omitempty" json:"course,omitempty"`
	Branch           string     `bson:"branch,omitempty" json:"branch,omitempty"`
	Year             string     `bson:"year,omitempty" json:"year,omitempty"`
	Posts            []string   `bson:"posts" json:"posts"`
	ResetTokenHash   string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpire *time.Time `bson:"reset_token_expire,omitempty" json:"-"`
	CreatedAt        time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updatedAt"`
}

// Sanitize returns a copy of the user without secret material populated.
func (u User) Sanitize() User {
	u.PasswordHash = ""
	u.ResetTokenHash = ""
	u.ResetTokenExpire = nil
	return u
}
