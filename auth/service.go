package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/narthex/vouch/ratelimit"
	"github.com/narthex/vouch/store"
)

// Service composes the request store, approval ledger, threshold
// policy, session manager, rate limiter, and audit trail into the
// public authentication operations. All cross-request coordination goes
// through the store's compare-and-swap and the ledger's unique-vote
// constraint; the Service holds no locks of its own and is safe to run
// in multiple instances against a shared store.
type Service struct {
	requests   *requestStore
	ledger     *approvalLedger
	identities *identityStore
	sessions   *SessionManager
	trail      *Trail
	limiter    ratelimit.Limiter
	invites    InviteVerifier

	admins    map[string]struct{}
	threshold int
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Service over the given record store and session manager.
func New(st store.Store, sessions *SessionManager, opts ...Option) *Service {
	s := &Service{
		requests:   newRequestStore(st),
		ledger:     newApprovalLedger(st),
		identities: newIdentityStore(st),
		sessions:   sessions,
		admins:     make(map[string]struct{}),
		threshold:  DefaultPeerThreshold,
		ttl:        DefaultRequestTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewMemoryLimiter(ratelimit.DefaultConfig())
	}
	s.trail = NewTrail(st, s.logger)
	return s
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Trail returns the audit trail.
func (s *Service) Trail() *Trail { return s.trail }

// IsAdmin reports whether the name is a designated administrator.
func (s *Service) IsAdmin(name string) bool {
	_, ok := s.admins[NormalizeIdentity(name)]
	return ok
}

// resolveRole determines the capacity in which an approver acts.
// Policy order matters: an admin approving their own request still acts
// as admin.
func (s *Service) resolveRole(approver, requestedIdentity string) Role {
	if s.IsAdmin(approver) {
		return RoleAdmin
	}
	if approver == requestedIdentity {
		return RoleSelf
	}
	return RolePeer
}

// ClaimResult is the outcome of an identity claim on a new device.
type ClaimResult struct {
	Session Session
	// Request is set when the claim started an approval flow; nil when
	// the session was born fully trusted (invite or admin bootstrap).
	Request *Request
}

// Claim handles an identity claim from a device with no session.
//
//   - Known identity: an authentication request is created and a
//     provisional session issued — the peer-approval path defends
//     against name collision and device takeover.
//   - Unknown identity named as an admin: first-admin bootstrap, full
//     session immediately (nobody exists yet who could approve).
//   - Unknown identity with a valid invite: full session immediately;
//     approval never gates first-time joiners.
//   - Otherwise: ErrUnknownIdentity.
func (s *Service) Claim(name, device, origin, inviteToken string) (*ClaimResult, error) {
	name = NormalizeIdentity(name)
	if name == "" {
		return nil, ErrUnknownIdentity
	}

	exists, err := s.identities.Exists(name)
	if err != nil {
		return nil, err
	}

	if exists {
		req, err := s.CreateRequest(name, device, origin)
		if err != nil {
			return nil, err
		}
		session := s.sessions.CreateProvisional(name, device, req.ID)
		return &ClaimResult{Session: session, Request: req}, nil
	}

	if s.IsAdmin(name) {
		if err := s.identities.Create(name, s.now()); err != nil {
			return nil, err
		}
		session := s.sessions.CreateFull(name, device)
		if err := s.trail.Append(ActionBootstrapAdmin, name, "", "first admin login", origin); err != nil {
			return nil, err
		}
		return &ClaimResult{Session: session}, nil
	}

	if inviteToken != "" && s.invites != nil && s.invites.Redeem(inviteToken, name) {
		if err := s.identities.Create(name, s.now()); err != nil {
			return nil, err
		}
		session := s.sessions.CreateFull(name, device)
		if err := s.trail.Append(ActionMemberJoined, name, "", "joined via invite", origin); err != nil {
			return nil, err
		}
		return &ClaimResult{Session: session}, nil
	}

	return nil, ErrUnknownIdentity
}

// CreateRequest starts a new approval flow for a known identity.
// Denied creations leave no trace beyond the rate-limit denial entry.
func (s *Service) CreateRequest(identity, device, origin string) (*Request, error) {
	identity = NormalizeIdentity(identity)
	now := s.now()

	if err := s.limiter.Allow(identity, origin, now); err != nil {
		detail := "limit exceeded"
		if !errors.Is(err, ratelimit.ErrLimited) {
			// Limiter backend failure: fail closed, note the cause.
			detail = "limiter unavailable: " + err.Error()
		}
		if err := s.trail.Append(ActionRateLimited, identity, "", detail, origin); err != nil {
			return nil, err
		}
		return nil, ErrRateLimited
	}

	code, err := NewCode()
	if err != nil {
		return nil, err
	}
	req, err := s.requests.Create(identity, device, origin, code, now, s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.trail.Append(ActionRequestCreated, identity, req.ID, "device: "+device, origin); err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveOutcome reports what a single approval attempt observed.
type ApproveOutcome struct {
	// Result distinguishes a fresh vote from an idempotent retry.
	Result VoteResult
	// Status is the request status after the attempt.
	Status Status
	// PeerVotes is the distinct peer approver count at evaluation time.
	PeerVotes int
	// Transitioned is true only for the caller that won the
	// pending-to-approved compare-and-swap.
	Transitioned bool
}

// Approve casts an approval vote and, when the threshold policy is
// satisfied, attempts the pending-to-approved transition. Concurrent
// approvals are expected: exactly one caller wins the CAS, escalates
// the waiting sessions, and writes the approval audit entry; the rest
// observe the already-approved status.
func (s *Service) Approve(requestID, approver string, approverTrusted bool, origin string) (*ApproveOutcome, error) {
	approver = NormalizeIdentity(approver)
	if !approverTrusted {
		// Provisional sessions cannot vote, self-approval included.
		return nil, ErrForbidden
	}

	req, _, err := s.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	now := s.now()
	if now.After(req.ExpiresAt) {
		if err := s.expireNow(requestID, origin); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	role := s.resolveRole(approver, req.Identity)
	result, err := s.ledger.CastVote(requestID, approver, role, now)
	if err != nil {
		return nil, err
	}
	if result == VoteRecorded {
		if err := s.trail.Append(ActionVoteCast, approver, requestID, "role: "+string(role), origin); err != nil {
			return nil, err
		}
	}

	// The count is taken after our own vote is durable; duplicate votes
	// still re-evaluate so a retry can complete an interrupted approval.
	peers, err := s.ledger.CountPeers(requestID)
	if err != nil {
		return nil, err
	}
	approve, err := evaluateThreshold(role, peers, s.threshold)
	if err != nil {
		return nil, err
	}
	if !approve {
		return &ApproveOutcome{Result: result, Status: StatusPending, PeerVotes: peers}, nil
	}

	won, err := s.requests.Transition(requestID, StatusPending, StatusApproved, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race; report whatever the winner made of it.
		current, _, err := s.requests.Get(requestID)
		if err != nil {
			return nil, err
		}
		return &ApproveOutcome{Result: result, Status: current.Status, PeerVotes: peers}, nil
	}

	escalated := s.sessions.Escalate(requestID)
	detail := fmt.Sprintf("role: %s, peer votes: %d, sessions escalated: %d", role, peers, escalated)
	if err := s.trail.Append(ActionRequestApproved, approver, requestID, detail, origin); err != nil {
		return nil, err
	}
	return &ApproveOutcome{Result: result, Status: StatusApproved, PeerVotes: peers, Transitioned: true}, nil
}

// Reject resolves a pending request as rejected. Permitted for an
// administrator or for the requester themself; peers can only decline
// to vote. The requester may reject from their provisional session —
// cancelling one's own request is always safe.
func (s *Service) Reject(requestID, actor string, actorTrusted bool, origin string) error {
	actor = NormalizeIdentity(actor)

	req, _, err := s.requests.Get(requestID)
	if err != nil {
		return err
	}

	isRequester := actor == req.Identity
	isAdmin := s.IsAdmin(actor) && actorTrusted
	if !isRequester && !isAdmin {
		return ErrForbidden
	}

	if req.Status.Terminal() {
		return ErrAlreadyResolved
	}
	now := s.now()
	if now.After(req.ExpiresAt) {
		if err := s.expireNow(requestID, origin); err != nil {
			return err
		}
		return ErrExpired
	}

	won, err := s.requests.Transition(requestID, StatusPending, StatusRejected, now)
	if err != nil {
		return err
	}
	if !won {
		return ErrAlreadyResolved
	}
	return s.trail.Append(ActionRequestRejected, actor, requestID, "", origin)
}

// expireNow flips a pending request past its TTL to expired. Losing
// the CAS means another actor resolved it; the expiry claim then stands
// down without an audit entry.
func (s *Service) expireNow(requestID, origin string) error {
	won, err := s.requests.Transition(requestID, StatusPending, StatusExpired, s.now())
	if err != nil {
		return err
	}
	if won {
		return s.trail.Append(ActionRequestExpired, SystemActor, requestID, "", origin)
	}
	return nil
}

// ExpireStale sweeps every pending request whose expiry has passed.
// Safe to run concurrently with in-flight approvals: the CAS
// precondition keeps a just-approved request out of the expired state.
func (s *Service) ExpireStale(now time.Time) (int, error) {
	pending, err := s.requests.ListPending()
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, req := range pending {
		if !now.After(req.ExpiresAt) {
			continue
		}
		won, err := s.requests.Transition(req.ID, StatusPending, StatusExpired, now)
		if err != nil {
			return expired, err
		}
		if !won {
			continue
		}
		if err := s.trail.Append(ActionRequestExpired, SystemActor, req.ID, "expiry sweep", ""); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// RequestStatus is the side-effect-free view served to polling clients.
type RequestStatus struct {
	Request *Request
	// Status is the effective status: a pending request past its
	// expiry reports expired even before the sweep has flipped it.
	Status    Status
	PeerVotes int
}

// Status reports the current state of a request without mutating it.
func (s *Service) Status(requestID string) (*RequestStatus, error) {
	req, _, err := s.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	peers, err := s.ledger.CountPeers(requestID)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == StatusPending && s.now().After(req.ExpiresAt) {
		status = StatusExpired
	}
	return &RequestStatus{Request: req, Status: status, PeerVotes: peers}, nil
}

// PendingRequests lists requests awaiting approval, for approver views.
func (s *Service) PendingRequests() ([]*Request, error) {
	return s.requests.ListPending()
}

// BulkApprove applies Approve to every pending request. Admin
// convenience, not a distinct algorithm; per-request already-resolved
// and expired outcomes are skipped, not errors.
func (s *Service) BulkApprove(actor string, actorTrusted bool, origin string) (int, error) {
	actor = NormalizeIdentity(actor)
	if !s.IsAdmin(actor) || !actorTrusted {
		return 0, ErrForbidden
	}
	pending, err := s.requests.ListPending()
	if err != nil {
		return 0, err
	}
	approved := 0
	for _, req := range pending {
		outcome, err := s.Approve(req.ID, actor, actorTrusted, origin)
		if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrExpired) {
			continue
		}
		if err != nil {
			return approved, err
		}
		if outcome.Transitioned {
			approved++
		}
	}
	return approved, nil
}

// Logout invalidates a session. Terminal and immediate.
func (s *Service) Logout(sessionID, origin string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil
	}
	s.sessions.Invalidate(sessionID)
	return s.trail.Append(ActionLogout, session.Identity, session.RequestID, "", origin)
}
