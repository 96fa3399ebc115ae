package models

import "time"

// Identity is the already-authenticated caller handed to the core by the auth
// collaborator. The core trusts it as is.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type User struct {
	ID        string    `bson:"_id" json:"_id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

type Favorite struct {
	UserID     string    `bson:"userId" json:"userId"`
	PropertyID string    `bson:"propertyId" json:"propertyId"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}
