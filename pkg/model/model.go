// Package model defines the core domain types for the N-FORCE moderation backend.
package model

import (
	"errors"
	"time"
)

var (
	ErrPlayerIDRequired = errors.New("player id is required")
	ErrReasonRequired   = errors.New("ban reason is required")
)

// BanRecord is the current ban for a single player. At most one record
// exists per PlayerID; re-banning overwrites the mutable fields instead of
// creating a duplicate, and unbanning deletes the record outright.
type BanRecord struct {
	ID          int64     `json:"-"`
	PlayerID    string    `json:"playerId"`
	Username    string    `json:"username"`
	Reason      string    `json:"reason"`
	Moderator   string    `json:"bannedBy"`
	ModeratorID string    `json:"bannedById,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the fields that must never be empty for a stored record.
func (r *BanRecord) Validate() error {
	if r.PlayerID == "" {
		return ErrPlayerIDRequired
	}
	if r.Reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// ModeratorCount is one row of the moderator leaderboard.
type ModeratorCount struct {
	Moderator string `json:"moderator"`
	Bans      int64  `json:"bans"`
}

// Actor identifies whoever invoked a moderation operation, along with the
// chat role IDs used for the allow-list check. API callers carry no roles;
// their authorization happens at the transport layer.
type Actor struct {
	Username string
	ID       string
	RoleIDs  []string
}

// Report is an exploit report sent by a game server. Every field is
// best-effort: the game client is hostile territory and reports arrive
// partially filled or not at all. Rendering substitutes placeholders for
// anything missing; a report never fails validation.
type Report struct {
	PlayerUsername    string `json:"playerUsername,omitempty"`
	PlayerDisplayName string `json:"playerDisplayName,omitempty"`
	PlayerUserID      string `json:"playerUserId,omitempty"`
	PlayerAccountAge  int    `json:"playerAccountAge,omitempty"` // days, 0 = not provided
	PlayerPremium     bool   `json:"playerPremium,omitempty"`
	PlayerTeam        string `json:"playerTeam,omitempty"`
	DeviceUsed        string `json:"deviceUsed,omitempty"`

	SessionPlaytime int    `json:"sessionPlaytime,omitempty"` // seconds in server
	GameID          string `json:"gameId,omitempty"`
	PlaceID         string `json:"placeId,omitempty"`

	DetectionType    string `json:"detectionType,omitempty"`
	DetectionDetails string `json:"detectionDetails,omitempty"`
	BehaviorAnalysis string `json:"behaviorAnalysis,omitempty"`
	RoastLine        string `json:"roastLine,omitempty"`
}
