package store

const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    content          TEXT NOT NULL DEFAULT '',
    url              TEXT NOT NULL DEFAULT '',
    image_url        TEXT NOT NULL DEFAULT '',
    published_at     DATETIME,
    source_name      TEXT NOT NULL DEFAULT '',
    source_url       TEXT NOT NULL DEFAULT '',
    language         TEXT NOT NULL DEFAULT 'en',
    country          TEXT NOT NULL DEFAULT 'us',
    predicted_labels TEXT NOT NULL DEFAULT '[]',
    top_labels       TEXT NOT NULL DEFAULT '[]',
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);

CREATE TABLE IF NOT EXISTS interactions (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          TEXT NOT NULL,
    article_id       TEXT NOT NULL,
    interaction_type TEXT NOT NULL DEFAULT 'click',
    timestamp        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);
CREATE INDEX IF NOT EXISTS idx_interactions_article ON interactions(article_id);
CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp);
`
