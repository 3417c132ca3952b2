package database

import (
	"RedditSchedulerAPI/models"
)

// UpsertMetrics writes the latest counters for a post, keyed by the Reddit
// post id. Repeated polls update the same row in place.
func (d *Database) UpsertMetrics(m *models.PostMetrics) error {
	query := `INSERT INTO post_metrics (id, reddit_post_id, impressions, upvotes, comments,
			  upvote_ratio, is_early_email_sent, last_updated)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (reddit_post_id)
			  DO UPDATE SET impressions = $3, upvotes = $4, comments = $5,
			                upvote_ratio = $6, is_early_email_sent = $7, last_updated = $8`

	_, err := d.DB.Exec(query, m.ID, m.RedditPostID, m.Impressions, m.Upvotes,
		m.Comments, m.UpvoteRatio, m.IsEarlyEmailSent, m.LastUpdated)
	return err
}

func (d *Database) GetMetrics(redditPostID string) (*models.PostMetrics, error) {
	m := &models.PostMetrics{}
	query := `SELECT id, reddit_post_id, impressions, upvotes, comments,
			  upvote_ratio, is_early_email_sent, last_updated
			  FROM post_metrics WHERE reddit_post_id = $1`

	err := d.DB.QueryRow(query, redditPostID).Scan(&m.ID, &m.RedditPostID,
		&m.Impressions, &m.Upvotes, &m.Comments, &m.UpvoteRatio,
		&m.IsEarlyEmailSent, &m.LastUpdated)
	if err != nil {
		return nil, err
	}
	return m, nil
}
