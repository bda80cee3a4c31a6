package utils

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a new document identifier.
// Identifiers are ObjectID hex strings on every backend, so ids stay valid
// when data moves between the sqlite and mongo stores.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsID reports whether s has the shape of a document identifier.
func IsID(s string) bool {
	return primitive.IsValidObjectID(s)
}
