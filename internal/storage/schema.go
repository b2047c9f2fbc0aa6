package storage

const schema = `
-- The 'cards' table stores each flashcard together with its memory state.
CREATE TABLE IF NOT EXISTS cards (
    hash TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL DEFAULT 'NORMAL',
    state INTEGER NOT NULL DEFAULT 0, -- 0: New, 1: Learning, 2: Review, 3: Relearning
    stability REAL NOT NULL DEFAULT 0,
    difficulty REAL NOT NULL DEFAULT 0,
    retrievability REAL NOT NULL DEFAULT 0,
    due_date DATETIME NOT NULL,
    last_review DATETIME,
    scheduled_days INTEGER NOT NULL DEFAULT 0,
    elapsed_days INTEGER NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_state_due ON cards(state, due_date);

-- The 'sources' table tracks the origin of the cards, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);

-- Append-only history of every rating. Rows outlive the card they describe.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_hash TEXT NOT NULL,
    rating INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,
    state_before INTEGER NOT NULL,
    state_after INTEGER NOT NULL,
    difficulty_before REAL NOT NULL,
    difficulty_after REAL NOT NULL,
    stability_before REAL NOT NULL,
    stability_after REAL NOT NULL,
    scheduled_days INTEGER NOT NULL,
    elapsed_days INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_hash, reviewed_at);

CREATE TABLE IF NOT EXISTS study_sessions (
    id TEXT PRIMARY KEY, -- uuid
    started_at DATETIME NOT NULL,
    ended_at DATETIME,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    cards_studied INTEGER NOT NULL DEFAULT 0,
    cards_correct INTEGER NOT NULL DEFAULT 0,
    cards_incorrect INTEGER NOT NULL DEFAULT 0,
    new_cards_studied INTEGER NOT NULL DEFAULT 0,
    exam_mode INTEGER NOT NULL DEFAULT 0
);
`
