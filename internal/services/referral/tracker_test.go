package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter is an in-memory Counter. Windows are ignored; tests only care
// about counts.
type fakeCounter struct {
	counts map[string]int64
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64)}
}

func (f *fakeCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Count(ctx context.Context, key string) (int64, error) {
	return f.counts[key], nil
}

type fakeTrackerStore struct {
	affiliates   map[string]*models.Affiliate
	clicks       []*models.ReferralClick
	attributions map[uuid.UUID]*models.ReferralAttribution
}

func newFakeTrackerStore() *fakeTrackerStore {
	return &fakeTrackerStore{
		affiliates:   make(map[string]*models.Affiliate),
		attributions: make(map[uuid.UUID]*models.ReferralAttribution),
	}
}

func (f *fakeTrackerStore) ActiveAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	affiliate, ok := f.affiliates[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return affiliate, nil
}

func (f *fakeTrackerStore) CreateClick(ctx context.Context, click *models.ReferralClick) error {
	f.clicks = append(f.clicks, click)
	return nil
}

func (f *fakeTrackerStore) CreateAttribution(ctx context.Context, attribution *models.ReferralAttribution) error {
	if _, ok := f.attributions[attribution.NewUserID]; ok {
		return ErrAlreadyAttributed
	}
	f.attributions[attribution.NewUserID] = attribution
	return nil
}

func (f *fakeTrackerStore) MarkVerified(ctx context.Context, newUserID uuid.UUID, now time.Time) (bool, error) {
	attribution, ok := f.attributions[newUserID]
	if !ok {
		return false, nil
	}
	attribution.Verified = true
	return true, nil
}

func newTestTracker() (*Tracker, *fakeTrackerStore, *fakeCounter) {
	store := newFakeTrackerStore()
	counter := newFakeCounter()
	store.affiliates["summer-promo"] = &models.Affiliate{ID: uuid.New(), ReferralCode: "summer-promo", Active: true}
	return NewTracker(store, counter, "test-salt"), store, counter
}

func TestTrackClick(t *testing.T) {
	tracker, store, _ := newTestTracker()

	result, err := tracker.TrackClick(context.Background(), "summer-promo", ClickContext{
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		Source:    "newsletter",
	})
	require.NoError(t, err)

	assert.True(t, result.Tracked)
	require.Len(t, store.clicks, 1)
	click := store.clicks[0]
	assert.Equal(t, "summer-promo", click.ReferralCode)
	assert.Equal(t, "newsletter", click.Source)
	// Raw IP and user agent never reach storage.
	assert.NotContains(t, click.IPHash, "203.0.113.7")
	assert.NotContains(t, click.UserAgentHash, "Mozilla")
}

func TestTrackClickUnknownCode(t *testing.T) {
	tracker, store, _ := newTestTracker()

	result, err := tracker.TrackClick(context.Background(), "no-such-code", ClickContext{IP: "203.0.113.7"})
	require.NoError(t, err)

	assert.False(t, result.Tracked)
	assert.Equal(t, ReasonUnknownCode, result.Reason)
	assert.Empty(t, store.clicks)
}

func TestTrackClickRateLimit(t *testing.T) {
	tracker, store, _ := newTestTracker()
	ctx := context.Background()
	click := ClickContext{IP: "203.0.113.7", UserAgent: "curl/8.0"}

	for i := 0; i < ClickRateLimit; i++ {
		result, err := tracker.TrackClick(ctx, "summer-promo", click)
		require.NoError(t, err)
		assert.True(t, result.Tracked, "click %d should be accepted", i+1)
	}

	result, err := tracker.TrackClick(ctx, "summer-promo", click)
	require.NoError(t, err)
	assert.False(t, result.Tracked)
	assert.Equal(t, ReasonRateLimited, result.Reason)
	// The rejected click leaves no row behind.
	assert.Len(t, store.clicks, ClickRateLimit)

	// A different IP is not affected.
	other, err := tracker.TrackClick(ctx, "summer-promo", ClickContext{IP: "198.51.100.9"})
	require.NoError(t, err)
	assert.True(t, other.Tracked)
}

func TestRecordAttributionFirstReferrerWins(t *testing.T) {
	tracker, store, _ := newTestTracker()
	ctx := context.Background()
	newUserID := uuid.New()

	first, err := tracker.RecordAttribution(ctx, "summer-promo", newUserID, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, newUserID, first.NewUserID)

	_, err = tracker.RecordAttribution(ctx, "summer-promo", newUserID, "203.0.113.7")
	assert.ErrorIs(t, err, ErrAlreadyAttributed)
	assert.Len(t, store.attributions, 1)
}

func TestRecordAttributionUnknownCode(t *testing.T) {
	tracker, _, _ := newTestTracker()

	_, err := tracker.RecordAttribution(context.Background(), "no-such-code", uuid.New(), "203.0.113.7")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestMarkVerified(t *testing.T) {
	tracker, store, _ := newTestTracker()
	ctx := context.Background()
	newUserID := uuid.New()

	_, err := tracker.RecordAttribution(ctx, "summer-promo", newUserID, "203.0.113.7")
	require.NoError(t, err)

	require.NoError(t, tracker.MarkVerified(ctx, newUserID))
	assert.True(t, store.attributions[newUserID].Verified)

	// Verifying a user without an attribution is not an error.
	assert.NoError(t, tracker.MarkVerified(ctx, uuid.New()))
}

func TestAssessRisk(t *testing.T) {
	tracker, _, counter := newTestTracker()
	ctx := context.Background()
	ipHash := "abc123"

	report, err := tracker.AssessRisk(ctx, ipHash)
	require.NoError(t, err)
	assert.Equal(t, RiskLevelLow, report.Level)

	counter.counts[abuseClickKey(ipHash)] = riskMediumClicks + 1
	report, err = tracker.AssessRisk(ctx, ipHash)
	require.NoError(t, err)
	assert.Equal(t, RiskLevelMedium, report.Level)

	counter.counts[abuseAttributionKey(ipHash)] = riskHighAttributions + 1
	report, err = tracker.AssessRisk(ctx, ipHash)
	require.NoError(t, err)
	assert.Equal(t, RiskLevelHigh, report.Level)
	assert.Equal(t, int64(riskMediumClicks+1), report.Clicks24h)
}

func TestAssessRiskCounterError(t *testing.T) {
	store := newFakeTrackerStore()
	tracker := NewTracker(store, failingCounter{}, "salt")

	_, err := tracker.AssessRisk(context.Background(), "abc")
	assert.Error(t, err)
}

type failingCounter struct{}

func (failingCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func (failingCounter) Count(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("redis down")
}
