package journal

const Schema = `
CREATE TABLE IF NOT EXISTS executions (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	exchange TEXT NOT NULL,
	size TEXT NOT NULL,
	price REAL NOT NULL,
	currency TEXT NOT NULL,
	realized REAL NOT NULL,
	time DATETIME NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	currency TEXT NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL,
	exposure REAL NOT NULL,
	realized REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	policy TEXT NOT NULL,
	dataset TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	events INTEGER NOT NULL,
	executions INTEGER NOT NULL,
	currency TEXT NOT NULL,
	start_equity REAL NOT NULL,
	end_equity REAL NOT NULL,
	max_dd_pct REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`
