package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/NicolasHaas/nforce/pkg/crypto"
	"github.com/NicolasHaas/nforce/pkg/model"
)

// restModerator labels ban records created through the HTTP API when the
// caller does not identify a moderator.
const restModerator = "api"

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type banRequest struct {
	PlayerID    string `json:"playerId"`
	Reason      string `json:"reason"`
	Username    string `json:"username,omitempty"`
	Moderator   string `json:"moderator,omitempty"`
	ModeratorID string `json:"moderatorId,omitempty"`
}

type banStatusRequest struct {
	PlayerID string `json:"playerId"`
}

type banStatusResponse struct {
	IsBanned bool   `json:"isBanned"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.metrics.APIErrors.Add(1)
	s.writeJSON(w, code, errorResponse{Error: msg})
}

// requireAPIKey validates the X-API-Key header against the token table.
// Validation runs in a transaction so the token's use counter stays exact
// under concurrent requests. Disabled entirely on open servers.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.APIRequests.Add(1)
		if s.cfg.Open {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			s.writeError(w, http.StatusUnauthorized, "missing X-API-Key header")
			return
		}

		tx, err := s.store.Tx(r.Context())
		if err != nil {
			slog.Error("begin token tx", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		// ValidateToken settles the transaction: commit on success,
		// rollback otherwise.
		if err := tx.ValidateToken(crypto.HashToken(key)); err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleReport accepts a free-form exploit report and forwards it to the
// moderation surface. A malformed body is not an error: the notification
// renders with placeholders instead. Only a failed delivery is.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.metrics.ReportsReceived.Add(1)

	var rep model.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		slog.Warn("malformed report payload", "error", err)
		rep = model.Report{}
	}
	slog.Info("report received", "player", rep.PlayerUsername, "detection", rep.DetectionType)

	if s.notifier == nil {
		s.metrics.ReportsFailed.Add(1)
		s.writeError(w, http.StatusInternalServerError, "no notification surface configured")
		return
	}
	if err := s.notifier.Deliver(r.Context(), rep); err != nil {
		s.metrics.ReportsFailed.Add(1)
		slog.Error("deliver report", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to deliver report")
		return
	}

	s.metrics.ReportsDelivered.Add(1)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "report delivered"})
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Moderator == "" {
		req.Moderator = restModerator
	}

	actor := model.Actor{Username: req.Moderator, ID: req.ModeratorID}
	rec, err := s.adapter.Ban(r.Context(), actor, req.PlayerID, req.Reason, req.Username)
	switch {
	case errors.Is(err, model.ErrPlayerIDRequired), errors.Is(err, model.ErrReasonRequired):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("ban via api", "player_id", req.PlayerID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to record ban")
		return
	}

	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	deleted, err := s.adapter.Unban(r.Context(), playerID)
	if err != nil {
		slog.Error("unban via api", "player_id", playerID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to remove ban")
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, "player is not banned")
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "player unbanned"})
}

func (s *Server) handleGetBan(w http.ResponseWriter, r *http.Request) {
	s.respondBanStatus(w, r, mux.Vars(r)["playerId"])
}

// handleCheckBanStatus is the POST variant game servers call on player join.
func (s *Server) handleCheckBanStatus(w http.ResponseWriter, r *http.Request) {
	var req banStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.respondBanStatus(w, r, req.PlayerID)
}

func (s *Server) respondBanStatus(w http.ResponseWriter, r *http.Request, playerID string) {
	if playerID == "" {
		s.writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	rec, err := s.adapter.CheckBan(r.Context(), playerID)
	if err != nil {
		slog.Error("check ban via api", "player_id", playerID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to check ban")
		return
	}

	resp := banStatusResponse{}
	if rec != nil {
		resp.IsBanned = true
		resp.Reason = rec.Reason
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBanList(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 0)
	recs, err := s.adapter.ListBans(r.Context(), limit)
	if err != nil {
		slog.Error("list bans via api", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list bans")
		return
	}
	if recs == nil {
		recs = []model.BanRecord{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleBanTop(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 0)
	rows, err := s.adapter.TopBans(r.Context(), limit)
	if err != nil {
		slog.Error("top bans via api", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to rank moderators")
		return
	}
	if rows == nil {
		rows = []model.ModeratorCount{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// queryLimit parses ?limit=N, falling back when absent or unparsable. The
// adapter applies its own defaults for a zero limit.
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
