package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/narthex/vouch/auth"
)

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login handles POST /login: an identity claim from a device without a
// session. Known identities get a provisional session plus a pending
// approval request; invited newcomers and the bootstrap admin get a
// fully-authenticated session immediately.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}

	clientIP := a.extractClientIP(r)
	result, err := a.svc.Claim(req.Identity, req.Device, clientIP, req.Invite)
	if err != nil {
		mapError(w, err)
		return
	}

	writeSessionCookie(w, r, result.Session.ID, result.Session.ExpiresAt)
	writeCSRFCookie(w, r)

	if result.Request == nil {
		writeJSON(w, http.StatusOK, LoginResponse{Status: "ok"})
		return
	}
	expires := result.Request.ExpiresAt
	writeJSON(w, http.StatusAccepted, LoginResponse{
		Status:    "pending",
		RequestID: result.Request.ID,
		Code:      result.Request.Code,
		ExpiresAt: &expires,
	})
}

// Logout handles POST /logout. Works for provisional and full sessions
// alike; logging out with no live session is a quiet success.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := a.svc.Logout(cookie.Value, a.extractClientIP(r)); err != nil {
			a.logger.Error("logout failed", "error", err)
		}
	}
	clearSessionCookie(w, r)
	clearCSRFCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// StatusCheck handles GET /auth/status-check: the polling endpoint for
// a device waiting on approval. Reading the status never mutates the
// request.
func (a *API) StatusCheck(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	resp := StatusCheckResponse{Authenticated: session.FullyAuthenticated}
	if session.RequestID != "" {
		status, err := a.svc.Status(session.RequestID)
		if err != nil {
			mapError(w, err)
			return
		}
		resp.RequestID = session.RequestID
		resp.RequestStatus = string(status.Status)
		resp.PeerVotes = status.PeerVotes
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListPending handles GET /auth/requests: the approver's work queue.
func (a *API) ListPending(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	if !session.FullyAuthenticated {
		writeError(w, http.StatusForbidden, "full authentication required")
		return
	}

	pending, err := a.svc.PendingRequests()
	if err != nil {
		mapError(w, err)
		return
	}
	resp := ListPendingResponse{Requests: make([]PendingRequest, 0, len(pending))}
	for _, req := range pending {
		resp.Requests = append(resp.Requests, PendingRequest{
			RequestID: req.ID,
			Identity:  req.Identity,
			Device:    req.Device,
			Origin:    req.Origin,
			Code:      req.Code,
			CreatedAt: req.CreatedAt,
			ExpiresAt: req.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Approve handles POST /auth/approve/{requestID}.
func (a *API) Approve(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	outcome, err := a.svc.Approve(requestID, session.Identity, session.FullyAuthenticated, a.extractClientIP(r))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApproveResponse{
		Status:    string(outcome.Status),
		PeerVotes: outcome.PeerVotes,
		Duplicate: outcome.Result == auth.VoteAlreadyCast,
	})
}

// Reject handles POST /auth/reject/{requestID}. Permitted for admins
// and for the requester cancelling their own attempt.
func (a *API) Reject(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	if err := a.svc.Reject(requestID, session.Identity, session.FullyAuthenticated, a.extractClientIP(r)); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(auth.StatusRejected)})
}

// BulkApprove handles POST /auth/bulk-approve. Admin only.
func (a *API) BulkApprove(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	n, err := a.svc.BulkApprove(session.Identity, session.FullyAuthenticated, a.extractClientIP(r))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkApproveResponse{Approved: n})
}

// ListAudit handles GET /audit. Admin only; supports an optional
// request_id query filter.
func (a *API) ListAudit(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	if !session.FullyAuthenticated || !a.svc.IsAdmin(session.Identity) {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	entries, err := a.svc.Trail().List(r.URL.Query().Get("request_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	resp := ListAuditResponse{Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, AuditEntryResponse{
			ID:        entry.ID,
			Action:    string(entry.Action),
			Actor:     entry.Actor,
			RequestID: entry.RequestID,
			Detail:    entry.Detail,
			Origin:    entry.Origin,
			CreatedAt: entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
