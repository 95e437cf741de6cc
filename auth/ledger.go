package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/narthex/vouch/store"
)

// VoteResult is the outcome of casting a vote.
type VoteResult int

const (
	// VoteRecorded means a fresh ledger entry was written.
	VoteRecorded VoteResult = iota
	// VoteAlreadyCast means this approver had already voted on this
	// request. Idempotent no-op: the network or UI may retry.
	VoteAlreadyCast
)

// approvalLedger records individual approval votes. One vote per
// (request, approver) pair, enforced by the store's insert-if-absent
// primitive rather than any in-process lock.
type approvalLedger struct {
	store store.Store
}

func newApprovalLedger(st store.Store) *approvalLedger {
	return &approvalLedger{store: st}
}

// voteID keys the ledger by request and approver. Approver names never
// contain '/' after normalisation is applied upstream, so the composite
// key is unambiguous.
func voteID(requestID, approver string) string {
	return requestID + "/" + approver
}

// CastVote records an approval vote. Duplicate votes return
// VoteAlreadyCast without touching the ledger.
func (l *approvalLedger) CastVote(requestID, approver string, role Role, now time.Time) (VoteResult, error) {
	vote := Approval{
		RequestID: requestID,
		Approver:  approver,
		Role:      role,
		CreatedAt: now.UTC(),
	}
	data, err := json.Marshal(vote)
	if err != nil {
		return VoteRecorded, err
	}
	err = l.store.Insert(collectionApprovals, voteID(requestID, approver), &store.Record{Data: data, Version: 1})
	if errors.Is(err, store.ErrExists) {
		return VoteAlreadyCast, nil
	}
	if err != nil {
		return VoteRecorded, fmt.Errorf("recording vote: %w", err)
	}
	return VoteRecorded, nil
}

// Votes returns all votes cast against a request.
func (l *approvalLedger) Votes(requestID string) ([]Approval, error) {
	ids, err := l.store.List(collectionApprovals)
	if err != nil {
		return nil, err
	}
	prefix := requestID + "/"
	var votes []Approval
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		rec, err := l.store.Get(collectionApprovals, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		var vote Approval
		if err := json.Unmarshal(rec.Data, &vote); err != nil {
			return nil, fmt.Errorf("decoding vote %s: %w", id, err)
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

// CountPeers returns the number of distinct peer approvers for a
// request. Admin and self votes do not count toward the peer quorum.
func (l *approvalLedger) CountPeers(requestID string) (int, error) {
	votes, err := l.Votes(requestID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, vote := range votes {
		if vote.Role == RolePeer {
			n++
		}
	}
	return n, nil
}
