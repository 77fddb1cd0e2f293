// Package aggregates defines domain-facing aggregate contracts for the points
// ledger, redemption codes, capacity-bounded allocation and reward triggers.
//
// These contracts intentionally avoid persistence/transport implementation details
// and represent semantic write boundaries where invariants must be enforced atomically.
package aggregates
