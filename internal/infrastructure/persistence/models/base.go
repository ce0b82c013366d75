package models

import (
	"time"

	"github.com/erp/tuition/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel extends BaseModel with the aggregate version
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// CampusAggregateModel provides persistence fields for campus-owned aggregate roots
type CampusAggregateModel struct {
	AggregateModel
	CampusID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainCampusAggregateRoot populates CampusAggregateModel from domain CampusAggregateRoot
func (m *CampusAggregateModel) FromDomainCampusAggregateRoot(c shared.CampusAggregateRoot) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.CampusID = c.CampusID
}

// ToCampusAggregateRoot converts the model back to a domain CampusAggregateRoot
func (m *CampusAggregateModel) ToCampusAggregateRoot() shared.CampusAggregateRoot {
	return shared.CampusAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		CampusID: m.CampusID,
	}
}
