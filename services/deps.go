package services

import (
	"context"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/reddit"
)

// PostStore is the slice of the post repository the pipeline depends on.
// *database.Database satisfies it.
type PostStore interface {
	CreatePost(post *models.ScheduledPost) error
	UpdatePost(post *models.ScheduledPost) error
	ClaimDuePosts(now, staleBefore time.Time) ([]*models.ScheduledPost, error)
	ClaimFailedPosts(now time.Time, maxAttempts int) ([]*models.ScheduledPost, error)
	ReleaseClaim(post *models.ScheduledPost, backTo models.PostStatus) error
	GetRecentPublished(since time.Time, limit int) ([]*models.ScheduledPost, error)
}

type UserStore interface {
	GetUserByID(id string) (*models.User, error)
	ConsumePostCredit(userID string) (bool, error)
}

type MetricsStore interface {
	UpsertMetrics(m *models.PostMetrics) error
	GetMetrics(redditPostID string) (*models.PostMetrics, error)
}

// RedditAPI is implemented by *reddit.Client.
type RedditAPI interface {
	Submit(ctx context.Context, accessToken string, req reddit.SubmitRequest) (*reddit.SubmitResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*reddit.TokenPair, error)
	PostInfo(ctx context.Context, accessToken, fullname string) (*reddit.PostInfo, error)
}

// Mailer delivers transactional email. The pipeline only ever sends; bounce
// handling and templates live with the provider.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
