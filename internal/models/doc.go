// Package models defines the core domain models for splitledger.
//
// # Ledger Models
//
//   - Bill: an expense owned by a group, split among participants
//   - BillPayment: a payment recorded against a bill (embedded, append-only)
//   - Debt: a directed amount owed by one user to another, tied to a bill
//   - Settlement: a payment that reduces a debt (embedded, append-only)
//   - Transaction: audit snapshot of a payment or settlement, consumed by analytics
//
// # Collaborator Models
//
//   - User: registered account, referenced by ID everywhere
//   - Group: member list with roles; archived groups reject ledger operations
//
// # Analytics Models
//
//   - UserAnalytics: per-user, per-group, per-month rollup
//   - AnalyticsOverview, MonthlyAnalytics, YearlyAnalytics, AnalyticsComparison: read shapes
//
// # Design Principles
//
//  1. Embedded lists (participants, payments, settlements) are owned by their parent
//     and never exist on their own.
//  2. Statuses are derived from amounts, never stored as an independent transition log.
//  3. Bills and debts carry a Version used for optimistic concurrency on write.
//  4. Relationships use ID strings instead of pointers.
package models
