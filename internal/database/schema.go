package database

// schemaVersion is the compiled-in schema version. Open compares this to
// the stored version in schema_info and runs any intermediate migration
// steps in order.
const schemaVersion = 1

// baseSchema creates the three tables plus the schema_info version table
// exactly as described in spec §4.1, idempotently (CREATE TABLE/INDEX IF
// NOT EXISTS so re-running it is always safe).
const baseSchema = `
CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
    source_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    source_type   TEXT UNIQUE NOT NULL,
    last_shown_at DATETIME,
    times_shown   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS images (
    filepath         TEXT PRIMARY KEY,
    filename         TEXT NOT NULL,
    source_id        INTEGER REFERENCES sources(source_id),
    width            INTEGER NOT NULL DEFAULT 0,
    height           INTEGER NOT NULL DEFAULT 0,
    aspect_ratio     REAL,
    file_size        INTEGER NOT NULL DEFAULT 0,
    file_mtime       DATETIME NOT NULL,
    is_favorite      BOOLEAN NOT NULL DEFAULT 0,
    first_indexed_at DATETIME NOT NULL,
    last_indexed_at  DATETIME NOT NULL,
    last_shown_at    DATETIME,
    times_shown      INTEGER NOT NULL DEFAULT 0,
    palette_status   TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS palettes (
    filepath          TEXT PRIMARY KEY REFERENCES images(filepath) ON DELETE CASCADE,
    color0 TEXT, color1 TEXT, color2  TEXT, color3  TEXT,
    color4 TEXT, color5 TEXT, color6  TEXT, color7  TEXT,
    color8 TEXT, color9 TEXT, color10 TEXT, color11 TEXT,
    color12 TEXT, color13 TEXT, color14 TEXT, color15 TEXT,
    background TEXT,
    foreground TEXT,
    cursor     TEXT,
    avg_hue           REAL NOT NULL DEFAULT 0,
    avg_saturation    REAL NOT NULL DEFAULT 0,
    avg_lightness     REAL NOT NULL DEFAULT 0,
    color_temperature REAL NOT NULL DEFAULT 0,
    indexed_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_images_source ON images(source_id);
CREATE INDEX IF NOT EXISTS idx_images_last_shown ON images(last_shown_at);
CREATE INDEX IF NOT EXISTS idx_images_favorite ON images(is_favorite);
CREATE INDEX IF NOT EXISTS idx_images_palette_status ON images(palette_status);

CREATE INDEX IF NOT EXISTS idx_palettes_lightness ON palettes(avg_lightness);
CREATE INDEX IF NOT EXISTS idx_palettes_temperature ON palettes(color_temperature);
CREATE INDEX IF NOT EXISTS idx_palettes_compound ON palettes(avg_lightness, color_temperature, avg_saturation);
`

// migrations holds idempotent steps to run in order when upgrading an
// older on-disk schema_info.version to schemaVersion. Each step must be
// safe to re-run (check column/index existence before altering), per
// spec §4.1. There is only one version so far; this slice is the place
// future migrations are appended.
var migrations = []func(execer) error{}
