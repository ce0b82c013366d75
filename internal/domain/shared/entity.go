package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch refreshes the update timestamp
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BaseAggregateRoot adds a version counter to an entity. The version is bumped on
// every state change so stale writes can be detected by the store.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// GetVersion returns the aggregate version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// CampusAggregateRoot is an aggregate root owned by a campus. Operators bound to a
// campus may only act on aggregates of that campus.
type CampusAggregateRoot struct {
	BaseAggregateRoot
	CampusID uuid.UUID
}

// NewCampusAggregateRoot creates a new campus-scoped aggregate root
func NewCampusAggregateRoot(campusID uuid.UUID) CampusAggregateRoot {
	return CampusAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		CampusID:          campusID,
	}
}

// VisibleTo reports whether an operator bound to campusID may access the aggregate.
// uuid.Nil means the operator is not bound to any campus.
func (c *CampusAggregateRoot) VisibleTo(campusID uuid.UUID) bool {
	return campusID == uuid.Nil || c.CampusID == campusID
}
