package models

import "fmt"

// Typename identifies the remote type of a cached entity.
type Typename string

const (
	TypePost    Typename = "Post"
	TypeUser    Typename = "User"
	TypeComment Typename = "Comment"
	TypeReply   Typename = "Reply"
)

// Identity addresses a remote entity. The (typename, id) pair is globally
// unique and stable for the object's lifetime on the server.
type Identity struct {
	Typename Typename `json:"typename"`
	ID       string   `json:"id"`
}

// Identify builds the cache identity for a typename and server ID.
func Identify(typename Typename, id string) Identity {
	return Identity{Typename: typename, ID: id}
}

// Key returns the canonical cache key, e.g. "Post:42".
func (i Identity) Key() string {
	return string(i.Typename) + ":" + i.ID
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.Typename == "" && i.ID == ""
}

func (i Identity) String() string {
	return fmt.Sprintf("%s:%s", i.Typename, i.ID)
}
