package referral

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"github.com/partnerly/backend/internal/utils"
)

const (
	// ClickRateLimit is the maximum number of clicks accepted per (ip, code)
	// pair within ClickRateWindow.
	ClickRateLimit  = 5
	ClickRateWindow = time.Hour

	// AttributionWindowDays is the number of days a click-based referral stays
	// attributable. Enforced by the signup flow consulting ResolveAttribution;
	// exposed here for UI messaging.
	AttributionWindowDays = 30

	abuseWindow = 24 * time.Hour
)

// Risk classification thresholds over the 24h abuse window.
const (
	riskHighClicks         = 50
	riskHighAttributions   = 10
	riskMediumClicks       = 20
	riskMediumAttributions = 5
)

// RiskLevel classifies an IP's referral activity.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Rejection reasons returned in TrackResult. Validation failures always carry
// a specific reason, never a silent drop.
const (
	ReasonUnknownCode = "unknown_code"
	ReasonRateLimited = "rate_limited"
)

// ErrCodeNotFound is returned when a referral code does not resolve to an
// active affiliate.
var ErrCodeNotFound = errors.New("referral code not found")

// ErrAlreadyAttributed is returned by stores when an attribution already
// exists for a new user. The first referrer wins.
var ErrAlreadyAttributed = errors.New("user already attributed")

// TrackerStore is the persistence surface of the attribution tracker.
type TrackerStore interface {
	ActiveAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error)
	CreateClick(ctx context.Context, click *models.ReferralClick) error
	CreateAttribution(ctx context.Context, attribution *models.ReferralAttribution) error
	MarkVerified(ctx context.Context, newUserID uuid.UUID, now time.Time) (bool, error)
}

// ClickContext carries the request context of a click. The raw IP and user
// agent are hashed before anything is stored.
type ClickContext struct {
	IP        string
	UserAgent string
	Source    string
}

// TrackResult reports whether a click was recorded and why not.
type TrackResult struct {
	Tracked bool   `json:"tracked"`
	Reason  string `json:"reason,omitempty"`
}

// RiskReport is the anti-abuse read path for admins.
type RiskReport struct {
	IPHash         string    `json:"ip_hash"`
	Clicks24h      int64     `json:"clicks_24h"`
	Attributions24 int64     `json:"attributions_24h"`
	Level          RiskLevel `json:"level"`
}

// Tracker owns referral click and attribution rows.
type Tracker struct {
	store   TrackerStore
	counter Counter
	salt    string
}

// NewTracker creates an attribution tracker. salt is the hashing salt for
// IP and user agent digests.
func NewTracker(store TrackerStore, counter Counter, salt string) *Tracker {
	return &Tracker{
		store:   store,
		counter: counter,
		salt:    salt,
	}
}

// TrackClick validates a referral code and appends a click row. Clicks over
// the per-(ip, code) sliding window limit are rejected without writing
// anything.
func (t *Tracker) TrackClick(ctx context.Context, code string, click ClickContext) (*TrackResult, error) {
	_, err := t.store.ActiveAffiliateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return &TrackResult{Tracked: false, Reason: ReasonUnknownCode}, nil
		}
		return nil, fmt.Errorf("failed to resolve referral code %q: %w", code, err)
	}

	ipHash := utils.HashClientIP(click.IP, t.salt)

	count, err := t.counter.Incr(ctx, clickRateKey(ipHash, code), ClickRateWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to increment click counter: %w", err)
	}
	if count > ClickRateLimit {
		log.Printf("Click on code %s rate limited (ip_hash=%s, count=%d)", code, ipHash, count)
		return &TrackResult{Tracked: false, Reason: ReasonRateLimited}, nil
	}

	if _, err := t.counter.Incr(ctx, abuseClickKey(ipHash), abuseWindow); err != nil {
		log.Printf("Failed to increment abuse click counter for %s: %v", ipHash, err)
	}

	row := &models.ReferralClick{
		ReferralCode:  code,
		IPHash:        ipHash,
		UserAgentHash: utils.HashUserAgent(click.UserAgent, t.salt),
		Source:        click.Source,
		ClickedAt:     time.Now(),
	}
	if err := t.store.CreateClick(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	return &TrackResult{Tracked: true}, nil
}

// ResolveAttribution returns the affiliate owning an active referral code.
// The signup flow consults this at signup time to stamp the new user's
// referred_by linkage.
func (t *Tracker) ResolveAttribution(ctx context.Context, code string) (uuid.UUID, error) {
	affiliate, err := t.store.ActiveAffiliateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return uuid.Nil, ErrCodeNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve referral code %q: %w", code, err)
	}
	return affiliate.ID, nil
}

// RecordAttribution creates the attribution row for a new signup, at most
// once per user. A duplicate call is a no-op; the first referrer wins.
func (t *Tracker) RecordAttribution(ctx context.Context, code string, newUserID uuid.UUID, ip string) (*models.ReferralAttribution, error) {
	if _, err := t.store.ActiveAffiliateByCode(ctx, code); err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to resolve referral code %q: %w", code, err)
	}

	ipHash := utils.HashClientIP(ip, t.salt)
	attribution := &models.ReferralAttribution{
		ReferralCode: code,
		NewUserID:    newUserID,
		IPHash:       ipHash,
		AttributedAt: time.Now(),
	}
	if err := t.store.CreateAttribution(ctx, attribution); err != nil {
		if errors.Is(err, ErrAlreadyAttributed) {
			log.Printf("User %s already attributed, keeping first referrer", newUserID)
			return nil, ErrAlreadyAttributed
		}
		return nil, fmt.Errorf("failed to record attribution: %w", err)
	}

	if _, err := t.counter.Incr(ctx, abuseAttributionKey(ipHash), abuseWindow); err != nil {
		log.Printf("Failed to increment abuse attribution counter for %s: %v", ipHash, err)
	}

	return attribution, nil
}

// MarkVerified flips the verified flag when the referred user confirms their
// email. Downstream reporting reads it; nothing else branches on it.
func (t *Tracker) MarkVerified(ctx context.Context, newUserID uuid.UUID) error {
	updated, err := t.store.MarkVerified(ctx, newUserID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark attribution verified: %w", err)
	}
	if !updated {
		log.Printf("No attribution to verify for user %s", newUserID)
	}
	return nil
}

// AssessRisk classifies the 24h referral activity of an IP hash.
func (t *Tracker) AssessRisk(ctx context.Context, ipHash string) (*RiskReport, error) {
	clicks, err := t.counter.Count(ctx, abuseClickKey(ipHash))
	if err != nil {
		return nil, fmt.Errorf("failed to read click counter: %w", err)
	}
	attributions, err := t.counter.Count(ctx, abuseAttributionKey(ipHash))
	if err != nil {
		return nil, fmt.Errorf("failed to read attribution counter: %w", err)
	}

	level := RiskLevelLow
	switch {
	case clicks > riskHighClicks || attributions > riskHighAttributions:
		level = RiskLevelHigh
	case clicks > riskMediumClicks || attributions > riskMediumAttributions:
		level = RiskLevelMedium
	}

	return &RiskReport{
		IPHash:         ipHash,
		Clicks24h:      clicks,
		Attributions24: attributions,
		Level:          level,
	}, nil
}

func clickRateKey(ipHash, code string) string {
	return fmt.Sprintf("referral:clicks:%s:%s", ipHash, code)
}

func abuseClickKey(ipHash string) string {
	return fmt.Sprintf("referral:abuse:clicks:%s", ipHash)
}

func abuseAttributionKey(ipHash string) string {
	return fmt.Sprintf("referral:abuse:attributions:%s", ipHash)
}
