package services

import (
	"context"
	"testing"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/reddit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(store *memPostStore, api *fakeReddit, now time.Time) *PublisherService {
	ps := NewPublisherService(store, api, 5)
	ps.now = func() time.Time { return now }
	return ps
}

func scheduledPost(id string, scheduledFor, createdAt time.Time) *models.ScheduledPost {
	sf := scheduledFor
	return &models.ScheduledPost{
		ID:           id,
		UserID:       "user-1",
		Community:    "golang",
		Title:        "A scheduled post",
		Kind:         models.KindText,
		Body:         "hello",
		ScheduledFor: &sf,
		UserTimeZone: "America/New_York",
		Status:       models.StatusScheduled,
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestScheduledSweepPublishesDuePost(t *testing.T) {
	now := time.Date(2025, 6, 1, 18, 35, 0, 0, time.UTC)
	store := newMemPostStore()
	api := newFakeReddit()
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(-5*time.Minute), now.Add(-10*time.Minute))
	require.NoError(t, store.CreatePost(post))

	summary, err := ps.RunScheduledSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	assert.Equal(t, models.StatusPublished, summary.Results[0].Status)

	got := store.get("p1")
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, "abc123", got.RedditPostID)
	assert.Equal(t, "t3_abc123", got.RedditFullname)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.PublishedAt)
	assert.Equal(t, "June 1, 2025 at 2:35 PM", got.PublishedAtLocal)
	assert.Nil(t, got.ClaimedAt)

	// Token was fresh, no refresh call.
	assert.Equal(t, 0, api.refreshCalls)
	assert.Equal(t, 1, api.submitCalls)
}

func TestScheduledSweepLeavesFuturePostAlone(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(time.Hour), now)
	require.NoError(t, store.CreatePost(post))

	for i := 0; i < 3; i++ {
		summary, err := ps.RunScheduledSweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Processed)
	}

	assert.Equal(t, models.StatusScheduled, store.get("p1").Status)
	assert.Equal(t, 0, api.submitCalls)
}

func TestScheduledSweepRefreshesStaleToken(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(-time.Minute), now.Add(-2*time.Hour))
	require.NoError(t, store.CreatePost(post))

	_, err := ps.RunScheduledSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, api.refreshCalls)
	got := store.get("p1")
	assert.Equal(t, "fresh-access", got.AccessToken)
	assert.Equal(t, "fresh-refresh", got.RefreshToken)
	assert.NotNil(t, got.TokenRefreshedAt)
	assert.Equal(t, models.StatusPublished, got.Status)
}

func TestRefreshedTokensPersistEvenWhenSubmitFails(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	api.submitErr = &reddit.SubmitError{Messages: []string{"RATELIMIT: you are doing that too much"}}
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(-time.Minute), now.Add(-2*time.Hour))
	require.NoError(t, store.CreatePost(post))

	_, err := ps.RunScheduledSweep(context.Background())
	require.NoError(t, err)

	got := store.get("p1")
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "RATELIMIT: you are doing that too much", got.FailureReason)
	assert.Equal(t, "fresh-access", got.AccessToken)
	require.NotNil(t, got.FailedAt)
	assert.NotEmpty(t, got.FailedAtLocal)
}

func TestUnrecognizedLegacyScheduleStaysScheduled(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now, now)
	post.ScheduledFor = nil
	post.ScheduledForText = "next Tuesday around noon"
	require.NoError(t, store.CreatePost(post))

	for i := 0; i < 3; i++ {
		summary, err := ps.RunScheduledSweep(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, summary.Processed)
		assert.Equal(t, models.StatusScheduled, summary.Results[0].Status)
		assert.Equal(t, "unrecognized schedule format", summary.Results[0].Message)
	}

	assert.Equal(t, models.StatusScheduled, store.get("p1").Status)
	assert.Equal(t, 0, api.submitCalls)
}

func TestLegacyScheduleEvaluatedInOwnTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	store := newMemPostStore()
	api := newFakeReddit()

	post := scheduledPost("p1", time.Now(), time.Now())
	post.ScheduledFor = nil
	post.ScheduledForText = "June 1, 2025 at 2:30 PM"
	require.NoError(t, store.CreatePost(post))

	// One minute early in New York: claimed, re-checked, released.
	early := newTestPublisher(store, api, time.Date(2025, 6, 1, 14, 29, 0, 0, loc).UTC())
	summary, err := early.RunScheduledSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	assert.Equal(t, models.StatusScheduled, store.get("p1").Status)
	assert.Equal(t, 0, api.submitCalls)

	// At the target minute it publishes.
	onTime := newTestPublisher(store, api, time.Date(2025, 6, 1, 14, 30, 0, 0, loc).UTC())
	_, err = onTime.RunScheduledSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, store.get("p1").Status)
	assert.Equal(t, 1, api.submitCalls)
}

func TestSweepContinuesAfterRecordFailure(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	api.failSubreddit = "banned_sub"
	ps := newTestPublisher(store, api, now)

	bad := scheduledPost("bad", now.Add(-time.Minute), now)
	bad.Community = "banned_sub"
	good := scheduledPost("good", now.Add(-time.Minute), now)
	require.NoError(t, store.CreatePost(bad))
	require.NoError(t, store.CreatePost(good))

	summary, err := ps.RunScheduledSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)

	assert.Equal(t, models.StatusFailed, store.get("bad").Status)
	assert.Contains(t, store.get("bad").FailureReason, "SUBREDDIT_NOTALLOWED")
	assert.Equal(t, models.StatusPublished, store.get("good").Status)
}

func TestRecoverySweepAlwaysRefreshesToken(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	ps := newTestPublisher(store, api, now)

	// Token refreshed seconds ago, still refreshed again on recovery.
	refreshedAt := now.Add(-10 * time.Second)
	post := scheduledPost("p1", now.Add(-time.Hour), now)
	post.Status = models.StatusFailed
	post.FailureReason = "RATELIMIT"
	post.AttemptCount = 1
	post.TokenRefreshedAt = &refreshedAt
	require.NoError(t, store.CreatePost(post))

	summary, err := ps.RunRecoverySweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)

	assert.Equal(t, 1, api.refreshCalls)
	got := store.get("p1")
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, 2, got.AttemptCount)
	assert.Empty(t, got.FailureReason)
}

func TestRecoveryRefreshFailureIsTerminalForTheAttempt(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	api.refreshErr = &reddit.AuthError{Reason: "invalid_grant"}
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(-time.Hour), now)
	post.Status = models.StatusFailed
	post.AttemptCount = 1
	require.NoError(t, store.CreatePost(post))

	summary, err := ps.RunRecoverySweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	assert.Equal(t, models.StatusFailed, summary.Results[0].Status)

	got := store.get("p1")
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.FailureReason, "invalid_grant")
	// Submission is never attempted when the refresh fails.
	assert.Equal(t, 0, api.submitCalls)

	// A rejected refresh token cannot recover, so the attempt budget is
	// spent and later sweeps leave the record alone.
	assert.Equal(t, 5, got.AttemptCount)
	for i := 0; i < 3; i++ {
		summary, err := ps.RunRecoverySweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Processed)
	}
	assert.Equal(t, 1, api.refreshCalls)
}

func TestTransientRefreshFailuresStopAtAttemptBound(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	api.refreshErr = errSendFailed
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(-time.Hour), now)
	post.Status = models.StatusFailed
	post.AttemptCount = 1
	require.NoError(t, store.CreatePost(post))

	// Each failed refresh consumes one attempt; with 4 attempts left the
	// record is retried exactly 4 times, no matter how often the sweep runs.
	for i := 0; i < 10; i++ {
		_, err := ps.RunRecoverySweep(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 4, api.refreshCalls)
	got := store.get("p1")
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 5, got.AttemptCount)
	assert.Equal(t, 0, api.submitCalls)
}

func TestRecoverySkipsExhaustedAttempts(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	api := newFakeReddit()
	ps := newTestPublisher(store, api, now)

	post := scheduledPost("p1", now.Add(-time.Hour), now)
	post.Status = models.StatusFailed
	post.AttemptCount = 5
	require.NoError(t, store.CreatePost(post))

	summary, err := ps.RunRecoverySweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, api.refreshCalls)
	assert.Equal(t, models.StatusFailed, store.get("p1").Status)
}

func TestClaimIsExclusive(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	post := scheduledPost("p1", now.Add(-time.Minute), now)
	require.NoError(t, store.CreatePost(post))

	first, err := store.ClaimDuePosts(now, now.Add(-claimLease))
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := store.ClaimDuePosts(now, now.Add(-claimLease))
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestStaleClaimIsReclaimable(t *testing.T) {
	now := time.Now()
	store := newMemPostStore()
	post := scheduledPost("p1", now.Add(-time.Hour), now)
	post.Status = models.StatusPublishing
	claimedAt := now.Add(-claimLease - time.Minute)
	post.ClaimedAt = &claimedAt
	require.NoError(t, store.CreatePost(post))

	claimed, err := store.ClaimDuePosts(now, now.Add(-claimLease))
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}
