package store

const schemaVersion = 1

// sqliteSchema creates the tables and indexes required by C7's query patterns:
// latest-event lookup (monitor_id, timestamp DESC), windowed ascending scans,
// paged descending history, the scheduler due-set (frequency, is_paused,
// updated_at), and the alert queue scan (user_id, created_at).
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS monitors (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL DEFAULT '',
    name              TEXT NOT NULL DEFAULT '',
    kind              TEXT NOT NULL,
    url               TEXT NOT NULL,
    port              INTEGER NOT NULL DEFAULT 0,
    frequency         INTEGER NOT NULL,
    alert_frequency   INTEGER NOT NULL,
    is_paused         INTEGER NOT NULL DEFAULT 0,
    last_alert_sent_at INTEGER,
    updated_at        INTEGER NOT NULL,
    created_at        INTEGER NOT NULL,
    contact_ids       TEXT
);

CREATE INDEX IF NOT EXISTS idx_monitors_due ON monitors(frequency, is_paused, updated_at);
CREATE INDEX IF NOT EXISTS idx_monitors_user ON monitors(user_id);

CREATE TABLE IF NOT EXISTS uptime_events (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    monitor_id          TEXT NOT NULL REFERENCES monitors(id),
    user_id             TEXT NOT NULL DEFAULT '',
    kind                TEXT NOT NULL,
    timestamp           INTEGER NOT NULL,
    end_time            INTEGER,
    availability        TEXT NOT NULL,
    ping                TEXT NOT NULL,
    port                TEXT NOT NULL,
    response_time_ms    INTEGER NOT NULL DEFAULT 0,
    confirmed_by_agent  TEXT NOT NULL DEFAULT '',
    reason              TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_monitor_ts ON uptime_events(monitor_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_events_ts ON uptime_events(timestamp);

CREATE TABLE IF NOT EXISTS alerts (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     TEXT NOT NULL,
    monitor_id  TEXT NOT NULL REFERENCES monitors(id),
    url         TEXT NOT NULL,
    tries       INTEGER NOT NULL DEFAULT 0,
    max_tries   INTEGER NOT NULL DEFAULT 3,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_user_created ON alerts(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_undelivered ON alerts(tries, max_tries);

CREATE TABLE IF NOT EXISTS monitor_agents (
    id      TEXT PRIMARY KEY,
    type    TEXT NOT NULL,
    region  TEXT NOT NULL DEFAULT '',
    url     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_type ON monitor_agents(type);

CREATE TABLE IF NOT EXISTS users (
    id    TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
`

// postgresSchema mirrors sqliteSchema with Postgres-native types (BIGSERIAL,
// BOOLEAN) so both backends expose byte-identical query semantics to C3–C8.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS monitors (
    id                 TEXT PRIMARY KEY,
    user_id            TEXT NOT NULL DEFAULT '',
    name               TEXT NOT NULL DEFAULT '',
    kind               TEXT NOT NULL,
    url                TEXT NOT NULL,
    port               INTEGER NOT NULL DEFAULT 0,
    frequency          INTEGER NOT NULL,
    alert_frequency    INTEGER NOT NULL,
    is_paused          BOOLEAN NOT NULL DEFAULT FALSE,
    last_alert_sent_at BIGINT,
    updated_at         BIGINT NOT NULL,
    created_at         BIGINT NOT NULL,
    contact_ids        TEXT
);

CREATE INDEX IF NOT EXISTS idx_monitors_due ON monitors(frequency, is_paused, updated_at);
CREATE INDEX IF NOT EXISTS idx_monitors_user ON monitors(user_id);

CREATE TABLE IF NOT EXISTS uptime_events (
    id                 BIGSERIAL PRIMARY KEY,
    monitor_id         TEXT NOT NULL REFERENCES monitors(id),
    user_id            TEXT NOT NULL DEFAULT '',
    kind               TEXT NOT NULL,
    timestamp          BIGINT NOT NULL,
    end_time           BIGINT,
    availability       TEXT NOT NULL,
    ping               TEXT NOT NULL,
    port               TEXT NOT NULL,
    response_time_ms   BIGINT NOT NULL DEFAULT 0,
    confirmed_by_agent TEXT NOT NULL DEFAULT '',
    reason             TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_monitor_ts ON uptime_events(monitor_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_events_ts ON uptime_events(timestamp);

CREATE TABLE IF NOT EXISTS alerts (
    id         BIGSERIAL PRIMARY KEY,
    user_id    TEXT NOT NULL,
    monitor_id TEXT NOT NULL REFERENCES monitors(id),
    url        TEXT NOT NULL,
    tries      INTEGER NOT NULL DEFAULT 0,
    max_tries  INTEGER NOT NULL DEFAULT 3,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_user_created ON alerts(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_undelivered ON alerts(tries, max_tries);

CREATE TABLE IF NOT EXISTS monitor_agents (
    id     TEXT PRIMARY KEY,
    type   TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT '',
    url    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_type ON monitor_agents(type);

CREATE TABLE IF NOT EXISTS users (
    id    TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
`
