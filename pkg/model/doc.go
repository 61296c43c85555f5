// Package model implements an in-process entity layer. Applications define
// entity types in a Registry, bind each type to a persistence Service, and
// work with Entity instances that hold dynamic fields and typed relation
// sets. Entities broadcast lifecycle and change events through a synchronous
// per-instance Emitter.
//
// Registries and types are set up once (define types, declare relations,
// bind services) and are then safe for concurrent reads. An Entity instance
// and its emitter are not synchronized; treat each entity as owned by the
// goroutine currently mutating it. Service implementations are goroutine-safe
// because one service backs many entities.
package model
