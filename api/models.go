package api

import "time"

// ErrorResponse is the uniform JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Identity string `json:"identity"`
	Device   string `json:"device,omitempty"`
	// Invite carries a single-use invite token for first-time joiners.
	Invite string `json:"invite,omitempty"`
}

// LoginResponse is returned from POST /login.
//
// Status "ok" means the session is fully authenticated. Status
// "pending" means an approval flow was started: the device should
// display Code to the user and poll /auth/status-check.
type LoginResponse struct {
	Status    string     `json:"status"`
	RequestID string     `json:"request_id,omitempty"`
	Code      string     `json:"code,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// StatusCheckResponse is returned from GET /auth/status-check.
type StatusCheckResponse struct {
	Authenticated bool   `json:"authenticated"`
	RequestID     string `json:"request_id,omitempty"`
	RequestStatus string `json:"request_status,omitempty"`
	PeerVotes     int    `json:"peer_votes,omitempty"`
}

// ApproveResponse is returned from POST /auth/approve/{requestID}.
type ApproveResponse struct {
	Status    string `json:"status"`
	PeerVotes int    `json:"peer_votes"`
	// Duplicate is true when this approver had already voted.
	Duplicate bool `json:"duplicate,omitempty"`
}

// PendingRequest describes one request awaiting approval, as shown to
// fully-authenticated members. The code is included so the approver
// can compare it with what the requester reads out.
type PendingRequest struct {
	RequestID string    `json:"request_id"`
	Identity  string    `json:"identity"`
	Device    string    `json:"device,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ListPendingResponse is returned from GET /auth/requests.
type ListPendingResponse struct {
	Requests []PendingRequest `json:"requests"`
}

// BulkApproveResponse is returned from POST /auth/bulk-approve.
type BulkApproveResponse struct {
	Approved int `json:"approved"`
}

// AuditEntryResponse is one element of GET /audit.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuditResponse is returned from GET /audit.
type ListAuditResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}
