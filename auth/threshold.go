package auth

import "fmt"

// DefaultPeerThreshold is the number of distinct peer approvers needed
// to auto-approve a request absent admin or self action.
const DefaultPeerThreshold = 2

// evaluateThreshold is the pure approval decision. Policy, first match
// wins:
//
//  1. Admin vote: immediate approval regardless of vote count.
//  2. Self vote (the requested identity, from a fully-authenticated
//     session of its own): immediate approval.
//  3. Peer vote: approve once the count of distinct peer approvers
//     reaches the threshold.
//
// The peer count must come from a read taken after the caller's own
// vote was durably recorded; the caller still confirms the transition
// through the request store's compare-and-swap, so a stale count can
// never produce a second approval.
func evaluateThreshold(role Role, distinctPeers, threshold int) (bool, error) {
	switch role {
	case RoleAdmin:
		return true, nil
	case RoleSelf:
		return true, nil
	case RolePeer:
		return distinctPeers >= threshold, nil
	default:
		return false, fmt.Errorf("unknown approver role %q", role)
	}
}
