// Package pollledger implements the permissionless poll ledger inside the
// polling-core context.
//
// The module owns the poll lifecycle state machine, the frozen-at-creation
// fee-split accounting across the creator and builder ledgers, the daily
// creation quota, and the vote-derived reputation tiers. Every vote touches
// all four atomically through a single transactional store port. Business
// rules live in the application and domain layers; infrastructure stays
// behind ports and adapters.
package pollledger
