package services

import (
	"context"
	"fmt"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/utils"

	"github.com/google/uuid"
)

const (
	metricsLookback  = 7 * 24 * time.Hour
	metricsBatchSize = 50

	// earlyCommentThreshold triggers the one-time "your post is taking off"
	// email when reached within earlyEmailWindow of publishing.
	earlyCommentThreshold = 5
	earlyEmailWindow      = 24 * time.Hour
)

// MetricsService periodically re-fetches engagement counters for published
// posts and upserts a metrics record per Reddit post id. It never mutates
// post status.
type MetricsService struct {
	store   PostStore
	metrics MetricsStore
	users   UserStore
	reddit  RedditAPI
	mailer  Mailer
	now     func() time.Time
}

func NewMetricsService(store PostStore, metrics MetricsStore, users UserStore, redditClient RedditAPI, mailer Mailer) *MetricsService {
	return &MetricsService{
		store:   store,
		metrics: metrics,
		users:   users,
		reddit:  redditClient,
		mailer:  mailer,
		now:     time.Now,
	}
}

func (ms *MetricsService) RunMetricsSweep(ctx context.Context) (*models.SweepSummary, error) {
	now := ms.now()
	posts, err := ms.store.GetRecentPublished(now.Add(-metricsLookback), metricsBatchSize)
	if err != nil {
		return nil, fmt.Errorf("loading published posts: %w", err)
	}

	summary := &models.SweepSummary{Results: []models.SweepResult{}}
	for _, post := range posts {
		summary.Results = append(summary.Results, ms.pollPost(ctx, post))
		summary.Processed++
	}
	return summary, nil
}

func (ms *MetricsService) pollPost(ctx context.Context, post *models.ScheduledPost) models.SweepResult {
	now := ms.now()

	if ms.tokenStale(post, now) {
		pair, err := ms.reddit.RefreshToken(ctx, post.RefreshToken)
		if err != nil {
			utils.Warnf("refreshing token for metrics on post %s: %v", post.ID, err)
			return models.SweepResult{PostID: post.ID, Status: post.Status, Message: "token refresh failed: " + err.Error()}
		}
		post.AccessToken = pair.AccessToken
		if pair.RefreshToken != "" {
			post.RefreshToken = pair.RefreshToken
		}
		refreshedAt := now
		post.TokenRefreshedAt = &refreshedAt
		post.UpdatedAt = now
		if err := ms.store.UpdatePost(post); err != nil {
			utils.Errorf("persisting refreshed tokens for post %s: %v", post.ID, err)
		}
	}

	info, err := ms.reddit.PostInfo(ctx, post.AccessToken, post.RedditFullname)
	if err != nil {
		utils.Warnf("fetching metrics for post %s (%s): %v", post.ID, post.RedditFullname, err)
		return models.SweepResult{PostID: post.ID, Status: post.Status, Message: err.Error()}
	}

	m := &models.PostMetrics{
		ID:           uuid.New().String(),
		RedditPostID: post.RedditPostID,
		Impressions:  info.ViewCount,
		Upvotes:      info.Ups,
		Comments:     info.NumComments,
		UpvoteRatio:  info.UpvoteRatio,
		LastUpdated:  now,
	}
	if existing, err := ms.metrics.GetMetrics(post.RedditPostID); err == nil {
		m.ID = existing.ID
		m.IsEarlyEmailSent = existing.IsEarlyEmailSent
	}

	// Counters are persisted before any notification so a store failure
	// never follows a sent email.
	if err := ms.metrics.UpsertMetrics(m); err != nil {
		utils.Errorf("upserting metrics for post %s: %v", post.ID, err)
		return models.SweepResult{PostID: post.ID, Status: post.Status, Message: err.Error()}
	}

	if ms.shouldSendEarlyEmail(post, m, now) {
		if ms.sendEarlyEmail(ctx, post, m) {
			m.IsEarlyEmailSent = true
			// Delivery becomes at-least-once only if this write fails.
			if err := ms.metrics.UpsertMetrics(m); err != nil {
				utils.Errorf("persisting early email flag for post %s: %v", post.ID, err)
			}
		}
	}

	return models.SweepResult{PostID: post.ID, Status: post.Status, Message: "metrics updated"}
}

func (ms *MetricsService) shouldSendEarlyEmail(post *models.ScheduledPost, m *models.PostMetrics, now time.Time) bool {
	if m.IsEarlyEmailSent || m.Comments < earlyCommentThreshold {
		return false
	}
	return post.PublishedAt != nil && now.Sub(*post.PublishedAt) <= earlyEmailWindow
}

func (ms *MetricsService) sendEarlyEmail(ctx context.Context, post *models.ScheduledPost, m *models.PostMetrics) bool {
	user, err := ms.users.GetUserByID(post.UserID)
	if err != nil || user.Email == "" {
		utils.Warnf("no email recipient for post %s owner %s", post.ID, post.UserID)
		return false
	}

	subject := fmt.Sprintf("Your post in r/%s is taking off", post.Community)
	html := fmt.Sprintf(
		`<p>Your post <strong>%s</strong> already has %d comments and %d upvotes.</p>
<p><a href="%s">Join the conversation</a> while it's hot.</p>`,
		post.Title, m.Comments, m.Upvotes, post.RedditPostURL)

	if err := ms.mailer.Send(ctx, user.Email, subject, html); err != nil {
		utils.Errorf("sending early performance email for post %s: %v", post.ID, err)
		return false
	}
	utils.Infof("sent early performance email for post %s to %s", post.ID, user.Email)
	return true
}

func (ms *MetricsService) tokenStale(post *models.ScheduledPost, now time.Time) bool {
	baseline := post.CreatedAt
	if post.TokenRefreshedAt != nil {
		baseline = *post.TokenRefreshedAt
	}
	return now.Sub(baseline) > tokenMaxAge
}
