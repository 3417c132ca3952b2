package database

import (
	"database/sql"

	_ "github.com/lib/pq"
)

type Database struct {
	DB *sql.DB
}

func NewDatabase(connStr string) (*Database, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	database := &Database{DB: db}
	if err := database.createTables(); err != nil {
		return nil, err
	}

	return database, nil
}

func (d *Database) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			reddit_username VARCHAR(255) NOT NULL DEFAULT '',
			variant_name VARCHAR(255) NOT NULL DEFAULT '',
			subscription_renews_at TIMESTAMPTZ,
			customer_id VARCHAR(255) NOT NULL DEFAULT '',
			subscription_id VARCHAR(255) NOT NULL DEFAULT '',
			post_available INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			community VARCHAR(255) NOT NULL,
			title TEXT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			scheduled_for TIMESTAMPTZ,
			scheduled_for_text TEXT NOT NULL DEFAULT '',
			user_time_zone VARCHAR(100) NOT NULL DEFAULT 'UTC',
			status VARCHAR(50) NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_refreshed_at TIMESTAMPTZ,
			reddit_post_id VARCHAR(255) NOT NULL DEFAULT '',
			reddit_post_url TEXT NOT NULL DEFAULT '',
			reddit_fullname VARCHAR(255) NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			published_at_local VARCHAR(255) NOT NULL DEFAULT '',
			failed_at TIMESTAMPTZ,
			failed_at_local VARCHAR(255) NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			attempt_count INTEGER NOT NULL DEFAULT 0,
			claimed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS post_metrics (
			id VARCHAR(255) PRIMARY KEY,
			reddit_post_id VARCHAR(255) UNIQUE NOT NULL,
			impressions INTEGER NOT NULL DEFAULT 0,
			upvotes INTEGER NOT NULL DEFAULT 0,
			comments INTEGER NOT NULL DEFAULT 0,
			upvote_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_early_email_sent BOOLEAN NOT NULL DEFAULT false,
			last_updated TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status_scheduled_for ON posts (status, scheduled_for)`,
		// Migration: add attempt_count to posts created before retry bounding
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name='posts' AND column_name='attempt_count') THEN
				ALTER TABLE posts ADD COLUMN attempt_count INTEGER NOT NULL DEFAULT 0;
			END IF;
		END $$;`,
		// Migration: add claimed_at for the publishing lease
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name='posts' AND column_name='claimed_at') THEN
				ALTER TABLE posts ADD COLUMN claimed_at TIMESTAMPTZ;
			END IF;
		END $$;`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
