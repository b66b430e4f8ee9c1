// Package model holds the identity fields shared by persisted entities.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/bjaus/apikit/serialize"
)

// Base carries the identifier and timestamps every entity has. Embed it
// in entity structs.
type Base struct {
	ID          uuid.UUID `json:"id"`
	DateCreated time.Time `json:"date_created"`
	DateUpdated time.Time `json:"date_updated"`
}

// NewBase returns a Base with a fresh identifier, created and updated now.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:          uuid.New(),
		DateCreated: now,
		DateUpdated: now,
	}
}

// Touch marks the entity as updated now.
func (b *Base) Touch() {
	b.DateUpdated = time.Now().UTC()
}

// PK returns the primary key.
func (b Base) PK() any { return b.ID }

// Baseline returns the structure of the identity fields.
func (Base) Baseline() *serialize.Structure {
	return serialize.Struct("id", "date_created", "date_updated")
}
