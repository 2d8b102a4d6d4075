package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	governanceengine "agora/contexts/governance-core/governance-engine"
	governanceerrors "agora/contexts/governance-core/governance-engine/domain/errors"
	governancehttp "agora/contexts/governance-core/governance-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "agora/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance governanceengine.Module
}

func New(
	governance governanceengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/governance/v1/dao/initialize", s.handleInitializeDAO)
	s.mux.HandleFunc("GET /api/governance/v1/stats", s.handleStats)

	s.mux.HandleFunc("POST /api/governance/v1/members", s.handleAddMember)
	s.mux.HandleFunc("GET /api/governance/v1/members", s.handleListMembers)
	s.mux.HandleFunc("DELETE /api/governance/v1/members/{member_id}", s.handleRemoveMember)

	s.mux.HandleFunc("POST /api/governance/v1/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /api/governance/v1/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /api/governance/v1/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("POST /api/governance/v1/proposals/{proposal_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/governance/v1/proposals/{proposal_id}/ballots/{voter}", s.handleGetBallot)
	s.mux.HandleFunc("POST /api/governance/v1/proposals/{proposal_id}/execute", s.handleExecuteProposal)

	s.mux.HandleFunc("POST /api/governance/v1/treasury/donations", s.handleReceiveDonation)
	s.mux.HandleFunc("GET /api/governance/v1/treasury/entries", s.handleTreasuryEntries)
}

func (s *Server) handleInitializeDAO(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.InitializeDAORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.governance.Handler.InitializeDAOHandler(r.Context(), callerID, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.StatsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.AddMemberHandler(r.Context(), callerID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListMembersHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	memberID := r.PathValue("member_id")
	if err := s.governance.Handler.RemoveMemberHandler(r.Context(), callerID, memberID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.CreateProposalHandler(r.Context(), callerID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListProposalsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetProposalHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}

	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.CastVoteHandler(r.Context(), callerID, proposalID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	voter := r.PathValue("voter")
	resp, err := s.governance.Handler.GetBallotHandler(r.Context(), proposalID, voter)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	// Execution is permissionless; the header is recorded when present.
	callerID := r.Header.Get("X-User-Id")

	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ExecuteProposalHandler(r.Context(), callerID, proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReceiveDonation(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.From) == "" {
		req.From = r.Header.Get("X-User-Id")
	}

	if err := s.governance.Handler.ReceiveDonationHandler(r.Context(), req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTreasuryEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeGovernanceError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.governance.Handler.TreasuryEntriesHandler(r.Context(), limit)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseProposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.PathValue("proposal_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrNotAdministrator):
		writeGovernanceError(w, http.StatusForbidden, "not_administrator", err.Error())
	case errors.Is(err, governanceerrors.ErrNotMember):
		writeGovernanceError(w, http.StatusForbidden, "not_member", err.Error())
	case errors.Is(err, governanceerrors.ErrNotInitialized):
		writeGovernanceError(w, http.StatusConflict, "dao_not_initialized", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyInitialized):
		writeGovernanceError(w, http.StatusConflict, "dao_already_initialized", err.Error())
	case errors.Is(err, governanceerrors.ErrVotingClosed):
		writeGovernanceError(w, http.StatusConflict, "voting_closed", err.Error())
	case errors.Is(err, governanceerrors.ErrVotingNotEnded):
		writeGovernanceError(w, http.StatusConflict, "voting_not_ended", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyVoted):
		writeGovernanceError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyExecuted):
		writeGovernanceError(w, http.StatusConflict, "already_executed", err.Error())
	case errors.Is(err, governanceerrors.ErrEmptyMemberList),
		errors.Is(err, governanceerrors.ErrInvalidMemberAddress),
		errors.Is(err, governanceerrors.ErrDuplicateMember),
		errors.Is(err, governanceerrors.ErrInvalidVotingPower),
		errors.Is(err, governanceerrors.ErrEmptyTitle),
		errors.Is(err, governanceerrors.ErrEmptyDescription),
		errors.Is(err, governanceerrors.ErrRecipientRequired),
		errors.Is(err, governanceerrors.ErrInvalidDeposit):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, governanceerrors.ErrProposalNotFound),
		errors.Is(err, governanceerrors.ErrMemberNotFound),
		errors.Is(err, governanceerrors.ErrBallotNotFound):
		writeGovernanceError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrMemberExists):
		writeGovernanceError(w, http.StatusConflict, "member_exists", err.Error())
	case errors.Is(err, governanceerrors.ErrMemberInactive):
		writeGovernanceError(w, http.StatusConflict, "member_inactive", err.Error())
	case errors.Is(err, governanceerrors.ErrInsufficientFunds):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, governanceerrors.ErrTransferRejected):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "transfer_rejected", err.Error())
	case errors.Is(err, governanceerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
