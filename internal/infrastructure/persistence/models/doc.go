// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities so the domain layer stays free of ORM
// tags; each model carries its own ToDomain/FromDomain mappers.
//
// - base.go: base persistence models (BaseModel, AggregateModel, CampusAggregateModel)
// - ledger.go: installments and payments
package models
