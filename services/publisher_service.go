package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/reddit"
	"RedditSchedulerAPI/utils"
)

const (
	// tokenMaxAge is how long a token snapshot is trusted before the
	// scheduled sweep refreshes it.
	tokenMaxAge = time.Hour

	// claimLease is how long a "publishing" claim is honored before another
	// sweep may re-claim the record (crashed worker recovery).
	claimLease = 10 * time.Minute
)

// PublisherService runs the periodic sweeps that move scheduled posts to
// Reddit. Each sweep invocation is a complete, independent pass; records are
// processed sequentially and one record's failure never aborts the batch.
type PublisherService struct {
	store       PostStore
	reddit      RedditAPI
	maxAttempts int
	now         func() time.Time
}

func NewPublisherService(store PostStore, redditClient RedditAPI, maxAttempts int) *PublisherService {
	return &PublisherService{
		store:       store,
		reddit:      redditClient,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// RunScheduledSweep claims every due scheduled post and submits it.
func (ps *PublisherService) RunScheduledSweep(ctx context.Context) (*models.SweepSummary, error) {
	now := ps.now()
	posts, err := ps.store.ClaimDuePosts(now, now.Add(-claimLease))
	if err != nil {
		return nil, fmt.Errorf("claiming due posts: %w", err)
	}

	summary := &models.SweepSummary{Results: []models.SweepResult{}}
	for _, post := range posts {
		summary.Results = append(summary.Results, ps.processPost(ctx, post, false))
		summary.Processed++
	}
	return summary, nil
}

// RunRecoverySweep retries failed posts that still have attempts left. The
// token snapshot of a failed post is assumed suspect, so it is refreshed
// unconditionally before every retry.
func (ps *PublisherService) RunRecoverySweep(ctx context.Context) (*models.SweepSummary, error) {
	now := ps.now()
	posts, err := ps.store.ClaimFailedPosts(now, ps.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("claiming failed posts: %w", err)
	}

	summary := &models.SweepSummary{Results: []models.SweepResult{}}
	for _, post := range posts {
		summary.Results = append(summary.Results, ps.processPost(ctx, post, true))
		summary.Processed++
	}
	return summary, nil
}

func (ps *PublisherService) processPost(ctx context.Context, post *models.ScheduledPost, forceRefresh bool) (result models.SweepResult) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("panic processing post %s: %v", post.ID, r)
			ps.markFailed(post, fmt.Sprintf("internal error: %v", r))
			result = models.SweepResult{PostID: post.ID, Status: models.StatusFailed, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	now := ps.now()
	loc := postLocation(post)

	// The claim query pre-filters canonical instants; legacy text schedules
	// are claimed unconditionally and re-checked here.
	if post.ScheduledFor == nil {
		due, err := scheduleDue(post, now, loc)
		if err != nil {
			// Unrecognized format: leave the record scheduled rather than
			// failing it, so a parser gap is never mistaken for a bad post.
			utils.Warnf("post %s has unrecognized schedule %q, leaving scheduled", post.ID, post.ScheduledForText)
			ps.release(post)
			return models.SweepResult{PostID: post.ID, Status: models.StatusScheduled, Message: "unrecognized schedule format"}
		}
		if !due {
			ps.release(post)
			return models.SweepResult{PostID: post.ID, Status: models.StatusScheduled, Message: "not due yet"}
		}
	}

	if forceRefresh || ps.tokenStale(post, now) {
		pair, err := ps.reddit.RefreshToken(ctx, post.RefreshToken)
		if err != nil {
			utils.Errorf("refreshing token for post %s: %v", post.ID, err)
			// A failed refresh consumes an attempt; a rejected refresh token
			// cannot recover on retry, so it exhausts the budget outright.
			post.AttemptCount++
			var authErr *reddit.AuthError
			if errors.As(err, &authErr) {
				post.AttemptCount = ps.maxAttempts
			}
			ps.markFailed(post, err.Error())
			return models.SweepResult{PostID: post.ID, Status: models.StatusFailed, Message: err.Error()}
		}
		post.AccessToken = pair.AccessToken
		if pair.RefreshToken != "" {
			post.RefreshToken = pair.RefreshToken
		}
		refreshedAt := now
		post.TokenRefreshedAt = &refreshedAt
		post.UpdatedAt = now
		// Persist refreshed tokens immediately, independent of the
		// submission outcome.
		if err := ps.store.UpdatePost(post); err != nil {
			utils.Errorf("persisting refreshed tokens for post %s: %v", post.ID, err)
			ps.markFailed(post, fmt.Sprintf("persisting refreshed tokens: %v", err))
			return models.SweepResult{PostID: post.ID, Status: models.StatusFailed, Message: err.Error()}
		}
	}

	post.AttemptCount++
	submitResult, err := ps.reddit.Submit(ctx, post.AccessToken, submitRequest(post))
	if err != nil {
		utils.Errorf("publishing post %s to r/%s: %v", post.ID, post.Community, err)
		ps.markFailed(post, err.Error())
		return models.SweepResult{PostID: post.ID, Status: models.StatusFailed, Message: err.Error()}
	}

	post.Status = models.StatusPublished
	post.RedditPostID = submitResult.ID
	post.RedditPostURL = submitResult.URL
	post.RedditFullname = submitResult.Fullname
	publishedAt := now
	post.PublishedAt = &publishedAt
	post.PublishedAtLocal = FormatLocal(now, loc)
	post.FailureReason = ""
	post.ClaimedAt = nil
	post.UpdatedAt = now
	if err := ps.store.UpdatePost(post); err != nil {
		utils.Errorf("persisting published post %s: %v", post.ID, err)
		return models.SweepResult{PostID: post.ID, Status: models.StatusPublished, Message: "published but not persisted: " + err.Error()}
	}

	utils.Infof("published post %s to r/%s (%s)", post.ID, post.Community, submitResult.Fullname)
	return models.SweepResult{PostID: post.ID, Status: models.StatusPublished}
}

// tokenStale reports whether the token snapshot is older than tokenMaxAge,
// measured from the last refresh, falling back to record creation.
func (ps *PublisherService) tokenStale(post *models.ScheduledPost, now time.Time) bool {
	baseline := post.CreatedAt
	if post.TokenRefreshedAt != nil {
		baseline = *post.TokenRefreshedAt
	}
	return now.Sub(baseline) > tokenMaxAge
}

func (ps *PublisherService) markFailed(post *models.ScheduledPost, reason string) {
	now := ps.now()
	post.Status = models.StatusFailed
	post.FailedAt = &now
	post.FailedAtLocal = FormatLocal(now, postLocation(post))
	post.FailureReason = reason
	post.ClaimedAt = nil
	post.UpdatedAt = now
	if err := ps.store.UpdatePost(post); err != nil {
		utils.Errorf("persisting failed post %s: %v", post.ID, err)
	}
}

func (ps *PublisherService) release(post *models.ScheduledPost) {
	if err := ps.store.ReleaseClaim(post, models.StatusScheduled); err != nil {
		utils.Errorf("releasing claim on post %s: %v", post.ID, err)
	}
}
