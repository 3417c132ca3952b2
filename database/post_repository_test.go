package database

import (
	"database/sql"
	"testing"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPostRow feeds scanPost a fixed row without a live database.
type stubPostRow struct {
	values []interface{}
}

func (s stubPostRow) Scan(dest ...interface{}) error {
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			*v = s.values[i].(string)
		case *models.PostStatus:
			*v = s.values[i].(models.PostStatus)
		case *models.PostKind:
			*v = s.values[i].(models.PostKind)
		case *int:
			*v = s.values[i].(int)
		case *time.Time:
			*v = s.values[i].(time.Time)
		case *sql.NullTime:
			*v = s.values[i].(sql.NullTime)
		}
	}
	return nil
}

func postRowValues(accessToken, refreshToken string) []interface{} {
	now := time.Now()
	return []interface{}{
		"p1", "user-1", "golang", "A title", models.KindText, "body", "",
		sql.NullTime{Time: now, Valid: true}, "", "America/New_York",
		models.StatusScheduled, accessToken, refreshToken,
		sql.NullTime{}, "", "", "",
		sql.NullTime{}, "", sql.NullTime{}, "", "",
		1, sql.NullTime{}, now, now,
	}
}

func TestScanPostDecryptsTokens(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	access, err := utils.EncryptToken("plain-access")
	require.NoError(t, err)
	refresh, err := utils.EncryptToken("plain-refresh")
	require.NoError(t, err)

	post, err := scanPost(stubPostRow{values: postRowValues(access, refresh)})
	require.NoError(t, err)

	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, models.StatusScheduled, post.Status)
	assert.Equal(t, "plain-access", post.AccessToken)
	assert.Equal(t, "plain-refresh", post.RefreshToken)
	require.NotNil(t, post.ScheduledFor)
}

// A corrupted token snapshot must surface as an error, not as an empty post.
func TestScanPostRejectsCorruptTokenSnapshot(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	_, err := scanPost(stubPostRow{values: postRowValues("not encrypted at all!", "also garbage")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypting access token for post p1")
}
