// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of GORM tags; each model carries ToDomain and
// FromDomain mappers used by the repositories.
//
//   - base.go: shared columns (id, timestamps, version, tenant)
//   - ledger.go: accounts, journal entries and lines, periods, close processes, number sequences
//   - allocation.go: allocation rules, allocations and their entries
//   - subledger.go: bills, invoices, tax rules, bank accounts, cash transactions,
//     reconciliations, payroll runs, fixed assets, depreciation records
//   - audit.go, retention.go: audit log, retention policies, executions, archived rows
//   - outbox.go: transactional outbox
package models
