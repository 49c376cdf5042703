package db

// SchemaVersion tracks the shape of SchemaSQL. Bump when tables change.
const SchemaVersion = "1.0.0"

// SchemaSQL is the complete schema for fresh stpactl stores.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests
// build their stores from GetSchemaSQL(), so repository code that
// references a column missing here fails immediately with "no such
// column" instead of drifting.
//
// Every tracked entity table carries the common versioning columns:
// hierarchical identity (type_identifier, level_identifier,
// sequential_identifier, system_hierarchy), a baseline label defaulting
// to 'Working', and audit timestamps. (system_hierarchy, baseline) is
// unique per table. The table set and column names must stay aligned
// with the descriptor registry in internal/store/registry.go.
const SchemaSQL = `
-- Systems (root of the subtree scoping used by branches)
CREATE TABLE IF NOT EXISTS systems (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'S',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_name TEXT NOT NULL,
	system_description TEXT,
	parent_system_id INTEGER REFERENCES systems(id),
	criticality TEXT NOT NULL DEFAULT 'Non-Critical' CHECK(criticality IN ('Non-Critical', 'Mission Critical', 'Safety Critical', 'Flight Critical', 'Security Critical', 'Privacy Critical')),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS functions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'F',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	function_name TEXT NOT NULL,
	function_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS interfaces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'I',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	interface_name TEXT NOT NULL,
	interface_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS assets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'A',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	asset_name TEXT NOT NULL,
	asset_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS constraints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'C',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	constraint_name TEXT NOT NULL,
	constraint_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS requirements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'R',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	requirement_text TEXT NOT NULL,
	verification_method TEXT CHECK(verification_method IN ('Inspection', 'Analysis', 'Demonstration', 'Test')),
	imperative TEXT CHECK(imperative IN ('Shall', 'Should', 'May', 'Will')),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS environments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'E',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	environment_name TEXT NOT NULL,
	environment_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

CREATE TABLE IF NOT EXISTS hazards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'H',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	hazard_name TEXT NOT NULL,
	hazard_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

-- Control structures keep their drawn diagram as a JSON blob
CREATE TABLE IF NOT EXISTS control_structures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'CS',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	system_id INTEGER NOT NULL REFERENCES systems(id),
	structure_name TEXT NOT NULL,
	diagram_json TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

-- Losses are project-global: no system scope, copied whole into branches
CREATE TABLE IF NOT EXISTS losses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_identifier TEXT NOT NULL DEFAULT 'L',
	level_identifier INTEGER NOT NULL DEFAULT 0,
	sequential_identifier INTEGER NOT NULL DEFAULT 0,
	system_hierarchy TEXT NOT NULL,
	baseline TEXT NOT NULL DEFAULT 'Working',
	loss_name TEXT NOT NULL,
	loss_description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(system_hierarchy, baseline)
);

-- Baseline bookkeeping (internal, never cloned or merged)
CREATE TABLE IF NOT EXISTS baseline_metadata (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	baseline_name TEXT NOT NULL UNIQUE,
	description TEXT,
	created_date TEXT NOT NULL,
	record_count INTEGER DEFAULT 0
);

-- Merge history (internal)
CREATE TABLE IF NOT EXISTS merge_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	merge_date TEXT NOT NULL,
	branch_name TEXT NOT NULL,
	branch_description TEXT,
	root_system_id INTEGER,
	merged_records INTEGER DEFAULT 0,
	conflicts_resolved INTEGER DEFAULT 0,
	merge_metadata TEXT
);

-- Hash-chained audit trail (internal, append-only)
CREATE TABLE IF NOT EXISTS audit_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id TEXT NOT NULL UNIQUE,
	logged_at TEXT NOT NULL,
	action TEXT NOT NULL,
	details TEXT,
	prev_hash TEXT NOT NULL,
	entry_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS db_version (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	version TEXT NOT NULL,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	description TEXT
);

CREATE INDEX IF NOT EXISTS idx_systems_parent ON systems(parent_system_id);
CREATE INDEX IF NOT EXISTS idx_systems_baseline ON systems(baseline);
CREATE INDEX IF NOT EXISTS idx_functions_system ON functions(system_id);
CREATE INDEX IF NOT EXISTS idx_functions_baseline ON functions(baseline);
CREATE INDEX IF NOT EXISTS idx_requirements_system ON requirements(system_id);
CREATE INDEX IF NOT EXISTS idx_requirements_baseline ON requirements(baseline);
`

// GetSchemaSQL returns the authoritative schema for store creation and tests.
func GetSchemaSQL() string {
	return SchemaSQL
}
