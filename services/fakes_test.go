package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/reddit"
)

var (
	errNotFound   = errors.New("not found")
	errSendFailed = errors.New("send failed")
)

// memPostStore is an in-memory PostStore. Claim/Update operate on copies so
// tests observe the same persistence boundary as the real repository.
type memPostStore struct {
	mu    sync.Mutex
	posts map[string]*models.ScheduledPost
}

func newMemPostStore() *memPostStore {
	return &memPostStore{posts: map[string]*models.ScheduledPost{}}
}

func clonePost(p *models.ScheduledPost) *models.ScheduledPost {
	c := *p
	return &c
}

func (s *memPostStore) CreatePost(post *models.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *memPostStore) UpdatePost(post *models.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *memPostStore) ClaimDuePosts(now, staleBefore time.Time) ([]*models.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claimed := []*models.ScheduledPost{}
	for _, p := range s.posts {
		due := p.Status == models.StatusScheduled &&
			(p.ScheduledFor == nil || !p.ScheduledFor.After(now))
		stale := p.Status == models.StatusPublishing &&
			p.ClaimedAt != nil && !p.ClaimedAt.After(staleBefore)
		if due || stale {
			p.Status = models.StatusPublishing
			claimedAt := now
			p.ClaimedAt = &claimedAt
			claimed = append(claimed, clonePost(p))
		}
	}
	return claimed, nil
}

func (s *memPostStore) ClaimFailedPosts(now time.Time, maxAttempts int) ([]*models.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claimed := []*models.ScheduledPost{}
	for _, p := range s.posts {
		if p.Status == models.StatusFailed && p.AttemptCount < maxAttempts {
			p.Status = models.StatusPublishing
			claimedAt := now
			p.ClaimedAt = &claimedAt
			claimed = append(claimed, clonePost(p))
		}
	}
	return claimed, nil
}

func (s *memPostStore) ReleaseClaim(post *models.ScheduledPost, backTo models.PostStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[post.ID]; ok && p.Status == models.StatusPublishing {
		p.Status = backTo
		p.ClaimedAt = nil
	}
	post.Status = backTo
	post.ClaimedAt = nil
	return nil
}

func (s *memPostStore) GetRecentPublished(since time.Time, limit int) ([]*models.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := []*models.ScheduledPost{}
	for _, p := range s.posts {
		if len(posts) == limit {
			break
		}
		if p.Status == models.StatusPublished && p.RedditFullname != "" &&
			p.PublishedAt != nil && !p.PublishedAt.Before(since) {
			posts = append(posts, clonePost(p))
		}
	}
	return posts, nil
}

func (s *memPostStore) get(id string) *models.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePost(s.posts[id])
}

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (s *memUserStore) GetUserByID(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) ConsumePostCredit(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.PostAvailable <= 0 {
		return false, nil
	}
	u.PostAvailable--
	return true, nil
}

type memMetricsStore struct {
	mu        sync.Mutex
	metrics   map[string]*models.PostMetrics
	upserts   int
	upsertErr error
}

func newMemMetricsStore() *memMetricsStore {
	return &memMetricsStore{metrics: map[string]*models.PostMetrics{}}
}

func (s *memMetricsStore) UpsertMetrics(m *models.PostMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	c := *m
	s.metrics[m.RedditPostID] = &c
	s.upserts++
	return nil
}

func (s *memMetricsStore) GetMetrics(redditPostID string) (*models.PostMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[redditPostID]
	if !ok {
		return nil, errNotFound
	}
	c := *m
	return &c, nil
}

// fakeReddit counts calls and returns canned results.
type fakeReddit struct {
	mu           sync.Mutex
	submitCalls  int
	refreshCalls int
	infoCalls    int

	submitErr     error
	failSubreddit string // Submit fails only for this subreddit when set
	refreshErr    error
	infoErr       error

	submitResult *reddit.SubmitResult
	tokenPair    *reddit.TokenPair
	info         *reddit.PostInfo
}

func newFakeReddit() *fakeReddit {
	return &fakeReddit{
		submitResult: &reddit.SubmitResult{ID: "abc123", Fullname: "t3_abc123", URL: "https://reddit.com/r/golang/comments/abc123"},
		tokenPair:    &reddit.TokenPair{AccessToken: "fresh-access", RefreshToken: "fresh-refresh", ExpiresIn: 3600},
		info:         &reddit.PostInfo{Ups: 10, NumComments: 2, UpvoteRatio: 0.95, ViewCount: 120},
	}
}

func (f *fakeReddit) Submit(ctx context.Context, accessToken string, req reddit.SubmitRequest) (*reddit.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.failSubreddit != "" && req.Subreddit == f.failSubreddit {
		return nil, &reddit.SubmitError{Messages: []string{"SUBREDDIT_NOTALLOWED: not allowed to post there"}}
	}
	return f.submitResult, nil
}

func (f *fakeReddit) RefreshToken(ctx context.Context, refreshToken string) (*reddit.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.tokenPair, nil
}

func (f *fakeReddit) PostInfo(ctx context.Context, accessToken, fullname string) (*reddit.PostInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errSendFailed
	}
	f.sent = append(f.sent, to)
	return nil
}
