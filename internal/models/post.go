package models

import "time"

// Comment is an embedded entry inside a post document.
type Comment struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"user_id" json:"userId"`
	Text   string `bson:"text" json:"text"`
}

// Post is owned by exactly one user; comments and likes reference users
// by id with no foreign-key enforcement from the store.
type Post struct {
	ID        string    `bson:"_id" json:"id"`
	OwnerID   string    `bson:"owner_id" json:"ownerId"`
	Caption   string    `bson:"caption,omitempty" json:"caption,omitempty"`
	MediaRef  string    `bson:"media_ref,omitempty" json:"mediaRef,omitempty"`
	Comments  []Comment `bson:"comments" json:"comments"`
	Likes     []string  `bson:"likes" json:"likes"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
