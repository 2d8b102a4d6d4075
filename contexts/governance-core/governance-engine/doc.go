// Package governanceengine implements the Governance Engine inside the
// governance-core context.
//
// The module owns the DAO lifecycle: membership administration, proposal
// submission and voting, quorum/majority settlement, and the treasury ledger
// that backs deposits, donations, payouts and refunds. It keeps business
// rules in application/domain layers and isolates infrastructure concerns
// behind ports and adapters.
package governanceengine
