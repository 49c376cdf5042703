package store

// FilterStrategy selects how a table is scoped when a branch copy is
// filtered down to one system subtree.
type FilterStrategy int

const (
	// FilterNone leaves the table intact: project-global entities are
	// always copied whole into a branch.
	FilterNone FilterStrategy = iota
	// FilterHierarchy keeps rows whose system_hierarchy belongs to the
	// resolved subtree.
	FilterHierarchy
	// FilterSystemID keeps rows whose system_id is in the resolved
	// subtree id set.
	FilterSystemID
)

// TableDescriptor describes one tracked table. The registry replaces
// the runtime column introspection of earlier tool generations: which
// tables carry a baseline label and how each is scoped is decided here,
// once, and must stay aligned with db.SchemaSQL.
type TableDescriptor struct {
	Name     string
	Strategy FilterStrategy
	Baseline bool // rows carry a baseline label and participate in snapshots
	Internal bool // bookkeeping table, never cloned or merged
}

// Mergeable reports whether branch rows of this table are reconciled
// back into main during a merge.
func (t TableDescriptor) Mergeable() bool {
	return t.Baseline && !t.Internal
}

var registry = []TableDescriptor{
	{Name: "systems", Strategy: FilterHierarchy, Baseline: true},
	{Name: "functions", Strategy: FilterSystemID, Baseline: true},
	{Name: "interfaces", Strategy: FilterSystemID, Baseline: true},
	{Name: "assets", Strategy: FilterSystemID, Baseline: true},
	{Name: "constraints", Strategy: FilterSystemID, Baseline: true},
	{Name: "requirements", Strategy: FilterSystemID, Baseline: true},
	{Name: "environments", Strategy: FilterSystemID, Baseline: true},
	{Name: "hazards", Strategy: FilterSystemID, Baseline: true},
	{Name: "control_structures", Strategy: FilterSystemID, Baseline: true},
	{Name: "losses", Strategy: FilterNone, Baseline: true},
	{Name: "baseline_metadata", Strategy: FilterNone, Internal: true},
	{Name: "merge_log", Strategy: FilterNone, Internal: true},
	{Name: "audit_log", Strategy: FilterNone, Internal: true},
	{Name: "db_version", Strategy: FilterNone, Internal: true},
}

// Tables returns descriptors for every tracked table.
func Tables() []TableDescriptor {
	out := make([]TableDescriptor, len(registry))
	copy(out, registry)
	return out
}

// BaselineTables returns the tables whose rows carry a baseline label.
func BaselineTables() []TableDescriptor {
	var out []TableDescriptor
	for _, t := range registry {
		if t.Baseline {
			out = append(out, t)
		}
	}
	return out
}

// MergeableTables returns the tables reconciled during a merge.
func MergeableTables() []TableDescriptor {
	var out []TableDescriptor
	for _, t := range registry {
		if t.Mergeable() {
			out = append(out, t)
		}
	}
	return out
}
