package sqlite

const schemaV1SQL = `
-- Security master: stocks, indices, and ETFs share one table.
-- Indices act as reference series for similarity scoring.
CREATE TABLE IF NOT EXISTS securities (
	symbol TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('stock', 'index', 'etf')),
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_securities_kind ON securities(kind);

-- Raw daily quotes, one row per security per trading day
CREATE TABLE IF NOT EXISTS daily_bars (
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL,
	close REAL,
	high REAL,
	low REAL,
	volume INTEGER,
	amount REAL,
	change_rate REAL,
	PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_bars_date ON daily_bars(date);

-- Derived daily returns. value is NULL when no return is computable
-- for the day (first listing, halted session, upstream gap).
CREATE TABLE IF NOT EXISTS daily_returns (
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	value REAL,
	PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_returns_date ON daily_returns(date);
`

const schemaV2SQL = `
-- Daily popularity rankings from the provider's sentiment feed
CREATE TABLE IF NOT EXISTS hot_ranks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	rank INTEGER NOT NULL,
	new_fans_ratio REAL NOT NULL DEFAULT 0,
	loyal_fans_ratio REAL NOT NULL DEFAULT 0,
	UNIQUE (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_hot_ranks_symbol ON hot_ranks(symbol, date);
`

const schemaV3SQL = `
-- Per subject-year winning index with the full score breakdown kept
-- as JSON for diagnostics
CREATE TABLE IF NOT EXISTS similarity_results (
	symbol TEXT NOT NULL,
	year INTEGER NOT NULL,
	index_symbol TEXT NOT NULL,
	breakdown TEXT,
	computed_at INTEGER NOT NULL,
	PRIMARY KEY (symbol, year)
);

CREATE INDEX IF NOT EXISTS idx_similarity_index ON similarity_results(index_symbol);
`
