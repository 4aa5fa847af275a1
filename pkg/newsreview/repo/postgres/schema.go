package postgres

import (
	"context"
	"fmt"
)

// Schema creates the tables the repository reads and writes. The wemedia,
// article and admin tables usually live in separate databases owned by
// their services; Schema puts them side by side for local runs and tests.
const Schema = `
CREATE TABLE IF NOT EXISTS wm_user (
	id   BIGSERIAL PRIMARY KEY,
	name VARCHAR(64) NOT NULL
);

CREATE TABLE IF NOT EXISTS wm_news (
	id             BIGSERIAL PRIMARY KEY,
	user_id        BIGINT NOT NULL DEFAULT 0,
	title          VARCHAR(255) NOT NULL DEFAULT '',
	content        TEXT NOT NULL DEFAULT '',
	type           SMALLINT NOT NULL DEFAULT 0,
	images         TEXT NOT NULL DEFAULT '',
	channel_id     BIGINT NOT NULL DEFAULT 0,
	labels         VARCHAR(255) NOT NULL DEFAULT '',
	publish_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
	status         SMALLINT NOT NULL DEFAULT 0,
	reason         VARCHAR(255) NOT NULL DEFAULT '',
	article_id     BIGINT,
	created_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
	submited_time  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_wm_news_status ON wm_news (status, publish_time);

CREATE TABLE IF NOT EXISTS ap_author (
	id      BIGSERIAL PRIMARY KEY,
	name    VARCHAR(64) NOT NULL,
	user_id BIGINT
);

CREATE INDEX IF NOT EXISTS idx_ap_author_name ON ap_author (name);

CREATE TABLE IF NOT EXISTS ad_channel (
	id   BIGSERIAL PRIMARY KEY,
	name VARCHAR(64) NOT NULL
);

CREATE TABLE IF NOT EXISTS ad_sensitive (
	id           BIGSERIAL PRIMARY KEY,
	sensitives   VARCHAR(255) NOT NULL,
	created_time TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ap_article (
	id           BIGSERIAL PRIMARY KEY,
	title        VARCHAR(255) NOT NULL,
	author_id    BIGINT,
	author_name  VARCHAR(64) NOT NULL DEFAULT '',
	channel_id   BIGINT,
	channel_name VARCHAR(64) NOT NULL DEFAULT '',
	layout       SMALLINT NOT NULL DEFAULT 0,
	images       TEXT NOT NULL DEFAULT '',
	publish_time TIMESTAMPTZ NOT NULL,
	created_time TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ap_article_config (
	article_id BIGINT PRIMARY KEY REFERENCES ap_article (id),
	is_forward BOOLEAN NOT NULL,
	is_delete  BOOLEAN NOT NULL,
	is_down    BOOLEAN NOT NULL,
	is_comment BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS ap_article_content (
	article_id BIGINT PRIMARY KEY REFERENCES ap_article (id),
	content    TEXT NOT NULL
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
