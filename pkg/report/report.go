// Package report turns raw exploit reports from game servers into
// moderator-facing notifications. Every payload field is optional; missing
// values render as explicit placeholders so a sparse or malformed report
// still produces a complete notification.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasHaas/nforce/pkg/model"
)

const (
	// Title heads every notification regardless of payload contents.
	Title = "🚨 N-FORCE: Exploit Attempt Detected"

	// Color is the accent used by rich renderers (alarm red).
	Color = 0xFF0000

	placeholderMissing = "N/A"
	placeholderType    = "Unknown"
	placeholderDetails = "No specific details provided."
)

// Field is one titled section of a notification.
type Field struct {
	Name  string
	Value string
}

// Notification is a fully rendered report, independent of the surface that
// will display it. PlayerID carries through so the delivery surface can
// attach a ban action for the reported player.
type Notification struct {
	CaseID   string
	Title    string
	Color    int
	PlayerID string
	Fields   []Field
	Footer   string
}

// Builder renders reports into notifications. The zero value is not usable;
// construct with NewBuilder.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder stamping notifications with the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock is for tests that need deterministic footers.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build renders r into a Notification. It never fails: absent fields get
// placeholders and a report with no recognizable data still yields a
// complete notification.
func (b *Builder) Build(r model.Report) Notification {
	caseID := uuid.NewString()

	profile := fmt.Sprintf(
		"**Username:** %s\n**Display Name:** %s\n**User ID:** %s\n**Account Age:** %s\n**Premium:** %s\n**Team:** %s\n**Device:** %s",
		orMissing(r.PlayerUsername),
		orMissing(r.PlayerDisplayName),
		orMissing(r.PlayerUserID),
		days(r.PlayerAccountAge),
		yesNo(r.PlayerPremium),
		orMissing(r.PlayerTeam),
		orMissing(r.DeviceUsed),
	)

	session := fmt.Sprintf(
		"> Time in server: %s\n> Game ID: %s\n> Place ID: %s",
		seconds(r.SessionPlaytime),
		orMissing(r.GameID),
		orMissing(r.PlaceID),
	)

	detectionType := r.DetectionType
	if detectionType == "" {
		detectionType = placeholderType
	}
	details := r.DetectionDetails
	if details == "" {
		details = placeholderDetails
	}

	return Notification{
		CaseID:   caseID,
		Title:    Title,
		Color:    Color,
		PlayerID: r.PlayerUserID,
		Fields: []Field{
			{Name: "👤 Player Profile", Value: profile},
			{Name: "⏳ Session Info", Value: session},
			{Name: fmt.Sprintf("⚠️ Detection Type: **%s**", detectionType), Value: details},
			{Name: "📊 Behavior Analysis", Value: orMissing(r.BehaviorAnalysis)},
			{Name: "🗯️ Roast Report", Value: orMissing(r.RoastLine)},
		},
		Footer: fmt.Sprintf("Case %s • recorded by N-FORCE • %s",
			shortCase(caseID), b.now().UTC().Format("2006-01-02 15:04 UTC")),
	}
}

func orMissing(s string) string {
	if s == "" {
		return placeholderMissing
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// days renders an account age; reports that omit the field arrive as zero.
func days(n int) string {
	if n <= 0 {
		return placeholderMissing
	}
	return fmt.Sprintf("%d days", n)
}

func seconds(n int) string {
	if n <= 0 {
		return placeholderMissing
	}
	return fmt.Sprintf("%ds", n)
}

func shortCase(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
