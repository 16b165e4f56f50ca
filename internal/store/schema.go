package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS vitality_snapshots (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    persona_slug         TEXT NOT NULL,
    operation            TEXT NOT NULL,
    computed_at          TEXT NOT NULL,
    score                REAL NOT NULL,
    tier                 TEXT NOT NULL,
    diagnosis            TEXT NOT NULL,
    trend                TEXT,
    dominant_cost        TEXT,
    days_to_depletion    REAL,
    operational_balance  REAL,
    operational_currency TEXT,
    period_revenue       REAL,
    period_expenses      REAL
);

CREATE TABLE IF NOT EXISTS provider_syncs (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    persona_slug         TEXT NOT NULL,
    provider             TEXT NOT NULL,
    synced_at            TEXT NOT NULL,
    source               TEXT NOT NULL,
    balance              REAL,
    currency             TEXT,
    reason               TEXT
);

CREATE TABLE IF NOT EXISTS closed_periods (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    persona_slug         TEXT NOT NULL,
    period_start         TEXT NOT NULL,
    period_end           TEXT NOT NULL,
    revenue              REAL,
    expenses             REAL,
    net_income           REAL,
    expenses_json        TEXT
);

CREATE INDEX IF NOT EXISTS idx_snapshots_slug_time ON vitality_snapshots(persona_slug, computed_at);
CREATE INDEX IF NOT EXISTS idx_syncs_slug_time ON provider_syncs(persona_slug, synced_at);
CREATE INDEX IF NOT EXISTS idx_periods_slug ON closed_periods(persona_slug, period_end);
`
