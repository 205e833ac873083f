package store

// Timestamps are TEXT in SQLite so that rows written by the seed script with
// datetime('now') sort alongside rows written here.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agencies (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    website          TEXT NOT NULL,
    location         TEXT NOT NULL DEFAULT '',
    primary_service  TEXT,
    services_json    TEXT NOT NULL DEFAULT '[]',
    industries_json  TEXT NOT NULL DEFAULT '[]',
    highlights_json  TEXT NOT NULL DEFAULT '[]',
    source           TEXT,
    country          TEXT,
    city             TEXT,
    source_url       TEXT,
    blurb            TEXT,
    keywords         TEXT,
    score            INTEGER NOT NULL DEFAULT 0,
    score_prev       INTEGER,
    score_updated_at TEXT,
    confidence       TEXT NOT NULL DEFAULT 'Low' CHECK (confidence IN ('Low', 'Med')),
    verification     TEXT NOT NULL DEFAULT 'Unverified' CHECK (verification IN ('Unverified', 'Evidence')),
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agencies_rank ON agencies (score DESC, updated_at DESC);

CREATE TABLE IF NOT EXISTS submissions (
    id                    TEXT PRIMARY KEY,
    received_at           TEXT NOT NULL,
    status                TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
    agency_name           TEXT NOT NULL DEFAULT '',
    agency_website        TEXT NOT NULL DEFAULT '',
    agency_location       TEXT NOT NULL DEFAULT '',
    primary_service       TEXT NOT NULL DEFAULT '',
    industry_theme        TEXT NOT NULL DEFAULT '',
    channel               TEXT NOT NULL DEFAULT '',
    timeframe             TEXT NOT NULL DEFAULT '',
    budget_band           TEXT NOT NULL DEFAULT '',
    region                TEXT NOT NULL DEFAULT '',
    baseline              TEXT NOT NULL DEFAULT '',
    outcome               TEXT NOT NULL DEFAULT '',
    notes                 TEXT NOT NULL DEFAULT '',
    contact_email         TEXT NOT NULL DEFAULT '',
    verification_intent   TEXT NOT NULL DEFAULT 'not_sure',
    evidence_key          TEXT,
    evidence_content_type TEXT,
    submitted_from        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_submissions_pending ON submissions (status, received_at DESC);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS agencies (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    website          TEXT NOT NULL,
    location         TEXT NOT NULL DEFAULT '',
    primary_service  TEXT,
    services_json    TEXT NOT NULL DEFAULT '[]',
    industries_json  TEXT NOT NULL DEFAULT '[]',
    highlights_json  TEXT NOT NULL DEFAULT '[]',
    source           TEXT,
    country          TEXT,
    city             TEXT,
    source_url       TEXT,
    blurb            TEXT,
    keywords         TEXT,
    score            INTEGER NOT NULL DEFAULT 0,
    score_prev       INTEGER,
    score_updated_at TIMESTAMPTZ,
    confidence       TEXT NOT NULL DEFAULT 'Low' CHECK (confidence IN ('Low', 'Med')),
    verification     TEXT NOT NULL DEFAULT 'Unverified' CHECK (verification IN ('Unverified', 'Evidence')),
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_agencies_rank ON agencies (score DESC, updated_at DESC);

CREATE TABLE IF NOT EXISTS submissions (
    id                    TEXT PRIMARY KEY,
    received_at           TIMESTAMPTZ NOT NULL,
    status                TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
    agency_name           TEXT NOT NULL DEFAULT '',
    agency_website        TEXT NOT NULL DEFAULT '',
    agency_location       TEXT NOT NULL DEFAULT '',
    primary_service       TEXT NOT NULL DEFAULT '',
    industry_theme        TEXT NOT NULL DEFAULT '',
    channel               TEXT NOT NULL DEFAULT '',
    timeframe             TEXT NOT NULL DEFAULT '',
    budget_band           TEXT NOT NULL DEFAULT '',
    region                TEXT NOT NULL DEFAULT '',
    baseline              TEXT NOT NULL DEFAULT '',
    outcome               TEXT NOT NULL DEFAULT '',
    notes                 TEXT NOT NULL DEFAULT '',
    contact_email         TEXT NOT NULL DEFAULT '',
    verification_intent   TEXT NOT NULL DEFAULT 'not_sure',
    evidence_key          TEXT,
    evidence_content_type TEXT,
    submitted_from        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_submissions_pending ON submissions (status, received_at DESC);
`
