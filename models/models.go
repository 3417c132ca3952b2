package models

import "time"

type PostStatus string

const (
	StatusScheduled  PostStatus = "scheduled"
	StatusPublishing PostStatus = "publishing"
	StatusPublished  PostStatus = "published"
	StatusFailed     PostStatus = "failed"
	StatusCancelled  PostStatus = "cancelled"
)

type PostKind string

const (
	KindText PostKind = "text"
	KindLink PostKind = "link"
)

// ScheduledPost is the single source of truth for the publishing pipeline.
// ScheduledFor is the canonical UTC instant; ScheduledForText only exists for
// records written before the instant column and is parsed on the read path.
type ScheduledPost struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Community        string     `json:"community"`
	Title            string     `json:"title"`
	Kind             PostKind   `json:"kind"`
	Body             string     `json:"body,omitempty"`
	URL              string     `json:"url,omitempty"`
	ScheduledFor     *time.Time `json:"scheduled_for,omitempty"`
	ScheduledForText string     `json:"-"`
	UserTimeZone     string     `json:"user_time_zone"`
	Status           PostStatus `json:"status"`
	AccessToken      string     `json:"-"`
	RefreshToken     string     `json:"-"`
	TokenRefreshedAt *time.Time `json:"-"`
	RedditPostID     string     `json:"reddit_post_id,omitempty"`
	RedditPostURL    string     `json:"reddit_post_url,omitempty"`
	RedditFullname   string     `json:"reddit_fullname,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	PublishedAtLocal string     `json:"published_at_local,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	FailedAtLocal    string     `json:"failed_at_local,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	AttemptCount     int        `json:"attempt_count"`
	ClaimedAt        *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PostMetrics holds the latest engagement counters for a published post,
// keyed by the Reddit post id (one row per post, updated in place).
type PostMetrics struct {
	ID               string    `json:"id"`
	RedditPostID     string    `json:"reddit_post_id"`
	Impressions      int       `json:"impressions"`
	Upvotes          int       `json:"upvotes"`
	Comments         int       `json:"comments"`
	UpvoteRatio      float64   `json:"upvote_ratio"`
	IsEarlyEmailSent bool      `json:"is_early_email_sent"`
	LastUpdated      time.Time `json:"last_updated"`
}

type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	Password             string     `json:"-"`
	Name                 string     `json:"name"`
	RedditUsername       string     `json:"reddit_username,omitempty"`
	VariantName          string     `json:"variant_name,omitempty"`
	SubscriptionRenewsAt *time.Time `json:"subscription_renews_at,omitempty"`
	CustomerID           string     `json:"-"`
	SubscriptionID       string     `json:"-"`
	PostAvailable        int        `json:"post_available"`
	CreatedAt            time.Time  `json:"created_at"`
}

// CreatePostRequest is the dispatch input. Date is "2006-01-02", Time is
// either "3:04 PM" or "15:04". The token pair is the caller's snapshot of
// valid Reddit credentials at submission time.
type CreatePostRequest struct {
	Community    string   `json:"community"`
	Title        string   `json:"title"`
	Kind         PostKind `json:"kind"`
	Body         string   `json:"body,omitempty"`
	URL          string   `json:"url,omitempty"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	TimeZone     string   `json:"timezone"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

type DispatchResponse struct {
	Post      *ScheduledPost `json:"post"`
	Published bool           `json:"published"`
}

type SweepResult struct {
	PostID  string     `json:"post_id"`
	Status  PostStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

type SweepSummary struct {
	Processed int           `json:"processed"`
	Results   []SweepResult `json:"results"`
}

// BillingEvent is the flattened payload of the billing provider webhook.
type BillingEvent struct {
	EventName      string `json:"event_name"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	RedditUsername string `json:"reddit_username"`
	VariantName    string `json:"variant_name"`
	RenewsAt       string `json:"renews_at"`
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
