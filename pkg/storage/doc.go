// Package storage provides history store implementations.
//
// This package includes:
//   - GormStorage: a GORM-based core.HistoryStore supporting various databases
//   - Connection pool presets and ConfigurePool
//
// The HistoryStore interface is defined in pkg/core. History is written for
// observability only; schedulers never read it back.
//
// Most users should import the root package github.com/jdziat/cronloop
// which provides NewGormStorage() to create storage instances.
package storage
