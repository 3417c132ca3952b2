package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/reddit"
	"RedditSchedulerAPI/utils"

	"github.com/google/uuid"
)

// immediateWindow is the tolerance within which a target time counts as
// "now". Anything at or under it (including the past) publishes synchronously.
const immediateWindow = 2 * time.Minute

// Dispatcher decides at submission time whether a post publishes immediately
// or is persisted for the scheduled sweep.
type Dispatcher struct {
	store  PostStore
	users  UserStore
	reddit RedditAPI
	now    func() time.Time
}

func NewDispatcher(store PostStore, users UserStore, redditClient RedditAPI) *Dispatcher {
	return &Dispatcher{
		store:  store,
		users:  users,
		reddit: redditClient,
		now:    time.Now,
	}
}

// Dispatch validates the request, consumes a post credit for non-premium
// plans, and either publishes synchronously (target ≤2 minutes away) or
// persists a scheduled record. On a synchronous publish failure the failed
// record is still persisted for auditability and the error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, req models.CreatePostRequest) (*models.DispatchResponse, error) {
	req.Community = strings.TrimPrefix(strings.TrimSpace(req.Community), "r/")

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	target, loc, err := ResolveScheduleTime(req.Date, req.Time, req.TimeZone)
	if err != nil {
		return nil, err
	}

	user, err := d.users.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}
	if !isPremiumPlan(user.VariantName) {
		ok, err := d.users.ConsumePostCredit(userID)
		if err != nil {
			return nil, fmt.Errorf("consuming post credit: %w", err)
		}
		if !ok {
			return nil, ErrQuotaExhausted
		}
	}

	now := d.now()
	targetUTC := target.UTC()
	post := &models.ScheduledPost{
		ID:           uuid.New().String(),
		UserID:       userID,
		Community:    req.Community,
		Title:        req.Title,
		Kind:         req.Kind,
		Body:         req.Body,
		URL:          req.URL,
		ScheduledFor: &targetUTC,
		UserTimeZone: loc.String(),
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if target.Sub(now) > immediateWindow {
		post.Status = models.StatusScheduled
		if err := d.store.CreatePost(post); err != nil {
			return nil, fmt.Errorf("persisting scheduled post: %w", err)
		}
		utils.Infof("post %s scheduled for %s (%s)", post.ID, FormatLocal(target, loc), loc)
		return &models.DispatchResponse{Post: post, Published: false}, nil
	}

	// Due now: publish synchronously with the caller's token.
	post.AttemptCount = 1
	result, submitErr := d.reddit.Submit(ctx, req.AccessToken, submitRequest(post))
	if submitErr != nil {
		post.Status = models.StatusFailed
		post.FailedAt = &now
		post.FailedAtLocal = FormatLocal(now, loc)
		post.FailureReason = submitErr.Error()
		if err := d.store.CreatePost(post); err != nil {
			utils.Errorf("persisting failed immediate post %s: %v", post.ID, err)
		}
		return &models.DispatchResponse{Post: post, Published: false},
			fmt.Errorf("publishing post: %w", submitErr)
	}

	post.Status = models.StatusPublished
	post.RedditPostID = result.ID
	post.RedditPostURL = result.URL
	post.RedditFullname = result.Fullname
	post.PublishedAt = &now
	post.PublishedAtLocal = FormatLocal(now, loc)
	if err := d.store.CreatePost(post); err != nil {
		return nil, fmt.Errorf("persisting published post: %w", err)
	}

	utils.Infof("post %s published immediately to r/%s (%s)", post.ID, post.Community, result.Fullname)
	return &models.DispatchResponse{Post: post, Published: true}, nil
}

func validateRequest(req models.CreatePostRequest) error {
	if req.Community == "" {
		return &ValidationError{Field: "community", Message: "community is required"}
	}
	if req.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	switch req.Kind {
	case models.KindText:
	case models.KindLink:
		if req.URL == "" {
			return &ValidationError{Field: "url", Message: "url is required for link posts"}
		}
	default:
		return &ValidationError{Field: "kind", Message: `kind must be "text" or "link"`}
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		return &ValidationError{Field: "credentials", Message: "access_token and refresh_token are required"}
	}
	return nil
}

func isPremiumPlan(variantName string) bool {
	v := strings.ToLower(variantName)
	return strings.Contains(v, "premium") || strings.Contains(v, "pro")
}

func submitRequest(post *models.ScheduledPost) reddit.SubmitRequest {
	kind := "self"
	if post.Kind == models.KindLink {
		kind = "link"
	}
	return reddit.SubmitRequest{
		Subreddit: post.Community,
		Kind:      kind,
		Title:     post.Title,
		Text:      post.Body,
		URL:       post.URL,
	}
}
