package database

import (
	"database/sql"
	"fmt"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/utils"
)

const postColumns = `id, user_id, community, title, kind, body, url,
	scheduled_for, scheduled_for_text, user_time_zone, status,
	access_token, refresh_token, token_refreshed_at,
	reddit_post_id, reddit_post_url, reddit_fullname,
	published_at, published_at_local, failed_at, failed_at_local, failure_reason,
	attempt_count, claimed_at, created_at, updated_at`

func (d *Database) CreatePost(post *models.ScheduledPost) error {
	accessToken, refreshToken, err := encryptTokenPair(post.AccessToken, post.RefreshToken)
	if err != nil {
		return err
	}

	query := `INSERT INTO posts (` + postColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			          $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err = d.DB.Exec(query, post.ID, post.UserID, post.Community, post.Title,
		post.Kind, post.Body, post.URL, post.ScheduledFor, post.ScheduledForText,
		post.UserTimeZone, post.Status, accessToken, refreshToken,
		post.TokenRefreshedAt, post.RedditPostID, post.RedditPostURL,
		post.RedditFullname, post.PublishedAt, post.PublishedAtLocal,
		post.FailedAt, post.FailedAtLocal, post.FailureReason,
		post.AttemptCount, post.ClaimedAt, post.CreatedAt, post.UpdatedAt)
	return err
}

func (d *Database) UpdatePost(post *models.ScheduledPost) error {
	accessToken, refreshToken, err := encryptTokenPair(post.AccessToken, post.RefreshToken)
	if err != nil {
		return err
	}

	query := `UPDATE posts SET community = $1, title = $2, kind = $3, body = $4, url = $5,
			  scheduled_for = $6, scheduled_for_text = $7, user_time_zone = $8, status = $9,
			  access_token = $10, refresh_token = $11, token_refreshed_at = $12,
			  reddit_post_id = $13, reddit_post_url = $14, reddit_fullname = $15,
			  published_at = $16, published_at_local = $17, failed_at = $18,
			  failed_at_local = $19, failure_reason = $20, attempt_count = $21,
			  claimed_at = $22, updated_at = $23
			  WHERE id = $24`

	_, err = d.DB.Exec(query, post.Community, post.Title, post.Kind, post.Body,
		post.URL, post.ScheduledFor, post.ScheduledForText, post.UserTimeZone,
		post.Status, accessToken, refreshToken, post.TokenRefreshedAt,
		post.RedditPostID, post.RedditPostURL, post.RedditFullname,
		post.PublishedAt, post.PublishedAtLocal, post.FailedAt, post.FailedAtLocal,
		post.FailureReason, post.AttemptCount, post.ClaimedAt, post.UpdatedAt, post.ID)
	return err
}

func (d *Database) GetPost(id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(d.DB.QueryRow(query, id))
}

func (d *Database) GetUserPosts(userID string) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := d.DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ClaimDuePosts atomically transitions due scheduled posts to "publishing"
// and returns them, so a sweep retriggered before the previous run finishes
// can never pick up the same record twice. Records with no canonical instant
// (legacy text schedules) are claimed unconditionally and re-checked by the
// caller. A claim whose lease expired before staleBefore is re-claimable.
func (d *Database) ClaimDuePosts(now, staleBefore time.Time) ([]*models.ScheduledPost, error) {
	query := `UPDATE posts
			  SET status = $1, claimed_at = $2, updated_at = $2
			  WHERE (status = $3 AND (scheduled_for <= $2 OR scheduled_for IS NULL))
			     OR (status = $1 AND claimed_at <= $4)
			  RETURNING ` + postColumns

	rows, err := d.DB.Query(query, models.StatusPublishing, now, models.StatusScheduled, staleBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ClaimFailedPosts claims failed posts that still have retry attempts left.
func (d *Database) ClaimFailedPosts(now time.Time, maxAttempts int) ([]*models.ScheduledPost, error) {
	query := `UPDATE posts
			  SET status = $1, claimed_at = $2, updated_at = $2
			  WHERE status = $3 AND attempt_count < $4
			  RETURNING ` + postColumns

	rows, err := d.DB.Query(query, models.StatusPublishing, now, models.StatusFailed, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ReleaseClaim hands a claimed post back to the given status without touching
// anything else. No-op unless the post is still in "publishing".
func (d *Database) ReleaseClaim(post *models.ScheduledPost, backTo models.PostStatus) error {
	query := `UPDATE posts SET status = $1, claimed_at = NULL, updated_at = $2
			  WHERE id = $3 AND status = $4`

	_, err := d.DB.Exec(query, backTo, time.Now(), post.ID, models.StatusPublishing)
	if err == nil {
		post.Status = backTo
		post.ClaimedAt = nil
	}
	return err
}

// CancelPost transitions a post from scheduled to cancelled. Returns false
// when the post is not in scheduled state (already picked up or terminal).
func (d *Database) CancelPost(id, userID string) (bool, error) {
	query := `UPDATE posts SET status = $1, updated_at = $2
			  WHERE id = $3 AND user_id = $4 AND status = $5`

	res, err := d.DB.Exec(query, models.StatusCancelled, time.Now(), id, userID, models.StatusScheduled)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetRecentPublished returns published posts with a Reddit fullname published
// after `since`, bounded by `limit`, for the metrics poller.
func (d *Database) GetRecentPublished(since time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts
			  WHERE status = $1 AND published_at >= $2 AND reddit_fullname <> ''
			  ORDER BY published_at DESC LIMIT $3`

	rows, err := d.DB.Query(query, models.StatusPublished, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.ScheduledPost, error) {
	post := &models.ScheduledPost{}
	var scheduledFor, tokenRefreshedAt, publishedAt, failedAt, claimedAt sql.NullTime

	err := row.Scan(&post.ID, &post.UserID, &post.Community, &post.Title,
		&post.Kind, &post.Body, &post.URL, &scheduledFor, &post.ScheduledForText,
		&post.UserTimeZone, &post.Status, &post.AccessToken, &post.RefreshToken,
		&tokenRefreshedAt, &post.RedditPostID, &post.RedditPostURL,
		&post.RedditFullname, &publishedAt, &post.PublishedAtLocal,
		&failedAt, &post.FailedAtLocal, &post.FailureReason,
		&post.AttemptCount, &claimedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.ScheduledFor = nullTimePtr(scheduledFor)
	post.TokenRefreshedAt = nullTimePtr(tokenRefreshedAt)
	post.PublishedAt = nullTimePtr(publishedAt)
	post.FailedAt = nullTimePtr(failedAt)
	post.ClaimedAt = nullTimePtr(claimedAt)

	if post.AccessToken, err = utils.DecryptToken(post.AccessToken); err != nil {
		return nil, fmt.Errorf("decrypting access token for post %s: %w", post.ID, err)
	}
	if post.RefreshToken, err = utils.DecryptToken(post.RefreshToken); err != nil {
		return nil, fmt.Errorf("decrypting refresh token for post %s: %w", post.ID, err)
	}

	return post, nil
}

func collectPosts(rows *sql.Rows) ([]*models.ScheduledPost, error) {
	posts := []*models.ScheduledPost{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			utils.Warnf("skipping unreadable post row: %v", err)
			continue
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func encryptTokenPair(accessToken, refreshToken string) (string, string, error) {
	encAccess, err := utils.EncryptToken(accessToken)
	if err != nil {
		return "", "", err
	}
	encRefresh, err := utils.EncryptToken(refreshToken)
	if err != nil {
		return "", "", err
	}
	return encAccess, encRefresh, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
