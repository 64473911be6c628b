package database

// schemas maps database names to their embedded schema SQL.
// All statements are idempotent so Migrate can run on every startup.
var schemas = map[string]string{
	"client_data": clientDataSchema,
	"results":     resultsSchema,
}

// client_data.db caches provider responses as JSON blobs with expiration
// timestamps. One table per provider, keyed by ticker.
const clientDataSchema = `
CREATE TABLE IF NOT EXISTS yahoo_history (
    ticker     TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS alphavantage_history (
    ticker     TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS brapi_history (
    ticker     TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_yahoo_history_expires ON yahoo_history(expires_at);
CREATE INDEX IF NOT EXISTS idx_alphavantage_history_expires ON alphavantage_history(expires_at);
CREATE INDEX IF NOT EXISTS idx_brapi_history_expires ON brapi_history(expires_at);
`

// results.db stores completed optimization runs as msgpack blobs.
const resultsSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    solver     TEXT NOT NULL,
    data       BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
