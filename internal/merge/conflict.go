package merge

import (
	"fmt"

	"github.com/example/stpactl/internal/store"
)

// ConflictType classifies a merge conflict.
type ConflictType string

const (
	ConflictHierarchicalID   ConflictType = "hierarchical_id"
	ConflictDuplicateEntity  ConflictType = "duplicate_entity"
	ConflictParentMissing    ConflictType = "parent_missing"
	ConflictReferenceMissing ConflictType = "reference_missing"
)

// ResolutionAction selects how a conflict is settled. Only KeepMain is
// enacted by the merge engine today; the remaining actions are accepted
// and recorded so resolutions survive round-trips, but settling them
// needs a product decision first.
type ResolutionAction string

const (
	KeepMain   ResolutionAction = "keep_main"
	KeepBranch ResolutionAction = "keep_branch"
	MergeBoth  ResolutionAction = "merge_both"
	Manual     ResolutionAction = "manual"
)

// Conflict is one detected disagreement between the main-side and
// branch-side version of an entity id. The same id can carry both a
// hierarchical-id conflict and a duplicate-entity conflict.
type Conflict struct {
	Type         ConflictType     `json:"conflict_type"`
	Table        string           `json:"table_name"`
	EntityID     int64            `json:"entity_id"`
	MainData     store.Row        `json:"main_data"`
	BranchData   store.Row        `json:"branch_data"`
	Description  string           `json:"description"`
	Resolution   ResolutionAction `json:"resolution,omitempty"`
	ResolvedData store.Row        `json:"resolved_data,omitempty"`
}

// Key identifies the conflicting row for resolution lookup.
func (c Conflict) Key() string {
	return fmt.Sprintf("%s:%d", c.Table, c.EntityID)
}

// Resolution is a caller-supplied settlement for one conflicting row.
type Resolution struct {
	Action   ResolutionAction `json:"action"`
	Table    string           `json:"table_name"`
	EntityID int64            `json:"entity_id"`
}
