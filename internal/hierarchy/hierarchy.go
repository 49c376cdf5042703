// Package hierarchy parses, validates, generates, and orders the
// hierarchical identifiers used to scope branches and order entities.
//
// Identifier strings look like "S-1" (root level) or "S-1.2" (nested).
// For identifiers with three or more numeric components only the first
// and last are kept: "S-1.2.3" parses to level 1, sequential 3. That
// flattening matches the shipped behavior and is covered by tests; do
// not "fix" it without a data migration.
package hierarchy

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Entity type codes.
const (
	TypeSystem                = "S"
	TypeFunction              = "F"
	TypeInterface             = "I"
	TypeAsset                 = "A"
	TypeConstraint            = "C"
	TypeRequirement           = "R"
	TypeEnvironment           = "E"
	TypeHazard                = "H"
	TypeLoss                  = "L"
	TypeControlStructure      = "CS"
	TypeController            = "CT"
	TypeControlledProcess     = "CP"
	TypeControlAction         = "CA"
	TypeFeedback              = "FB"
	TypeControlAlgorithm      = "ALG"
	TypeProcessModel          = "PM"
	TypeStateDiagram          = "SD"
	TypeState                 = "ST"
	TypeInTransition          = "TI"
	TypeOutTransition         = "TO"
	TypeSafetySecurityControl = "SSC"
)

var validTypes = map[string]bool{
	TypeSystem: true, TypeFunction: true, TypeInterface: true,
	TypeAsset: true, TypeConstraint: true, TypeRequirement: true,
	TypeEnvironment: true, TypeHazard: true, TypeLoss: true,
	TypeControlStructure: true, TypeController: true,
	TypeControlledProcess: true, TypeControlAction: true,
	TypeFeedback: true, TypeControlAlgorithm: true,
	TypeProcessModel: true, TypeStateDiagram: true, TypeState: true,
	TypeInTransition: true, TypeOutTransition: true,
	TypeSafetySecurityControl: true,
}

// maxLevels caps nesting depth for the types that form hierarchies.
// Types absent from this map have no level limit.
var maxLevels = map[string]int{
	TypeSystem:      10,
	TypeRequirement: 5,
	TypeFunction:    3,
}

var idPattern = regexp.MustCompile(`^([A-Z]+)-(\d+(?:\.\d+)*)$`)

// ID is a parsed hierarchical identifier. Level 0 marks a root entity.
type ID struct {
	Type  string
	Level int
	Seq   int
}

// String formats the identifier: "T-n" at root, "T-level.seq" nested.
func (id ID) String() string {
	if id.Level == 0 {
		return fmt.Sprintf("%s-%d", id.Type, id.Seq)
	}
	return fmt.Sprintf("%s-%d.%d", id.Type, id.Level, id.Seq)
}

// Parse parses a hierarchical ID string.
func Parse(s string) (ID, error) {
	match := idPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return ID{}, fmt.Errorf("invalid hierarchical ID %q", s)
	}

	parts := strings.Split(match[2], ".")
	if len(parts) == 1 {
		seq, err := strconv.Atoi(parts[0])
		if err != nil {
			return ID{}, fmt.Errorf("invalid hierarchical ID %q: %w", s, err)
		}
		return ID{Type: match[1], Level: 0, Seq: seq}, nil
	}

	// First component is the level, last the sequential; any
	// intermediate components are discarded.
	level, err := strconv.Atoi(parts[0])
	if err != nil {
		return ID{}, fmt.Errorf("invalid hierarchical ID %q: %w", s, err)
	}
	seq, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return ID{}, fmt.Errorf("invalid hierarchical ID %q: %w", s, err)
	}
	return ID{Type: match[1], Level: level, Seq: seq}, nil
}

// Validate checks structure rules for a parsed identifier.
func Validate(id ID) error {
	if !validTypes[id.Type] {
		return fmt.Errorf("invalid type identifier: %s", id.Type)
	}
	if max, ok := maxLevels[id.Type]; ok && id.Level > max {
		return fmt.Errorf("level %d exceeds maximum %d for type %s", id.Level, max, id.Type)
	}
	if id.Seq < 0 {
		return fmt.Errorf("sequential identifier cannot be negative")
	}
	if id.Level == 0 && id.Seq == 0 {
		return fmt.Errorf("root level must have sequential identifier > 0")
	}
	return nil
}

// GenerateChild derives a child identifier from a parent. A root parent
// contributes its sequential value as the child's level ("S-1" parents
// "S-1.1", "S-1.2", ...); nested parents keep their level.
func GenerateChild(parent ID, childSeq int) (ID, error) {
	child := ID{Type: parent.Type, Seq: childSeq}
	if parent.Level == 0 {
		child.Level = parent.Seq
	} else {
		child.Level = parent.Level
	}

	if err := Validate(child); err != nil {
		return ID{}, fmt.Errorf("generated invalid child ID: %w", err)
	}
	return child, nil
}

// ParentHierarchy returns the parent identifier string, or false for
// root-level identifiers.
func ParentHierarchy(id ID) (string, bool) {
	if id.Level == 0 || id.Seq <= 0 {
		return "", false
	}
	parent := ID{Type: id.Type, Level: 0, Seq: id.Level}
	return parent.String(), true
}

// Depth returns the nesting depth: 0 for root, 1 for a first sub-level
// marker, 2 for anything deeper.
func Depth(id ID) int {
	switch {
	case id.Level == 0:
		return 0
	case id.Seq == 0:
		return 1
	default:
		return 2
	}
}

// Sort orders identifier strings ascending by (type, level, sequential).
// Unparsable entries keep their original positions and are returned in
// warnings so callers can log them; they are never dropped.
func Sort(ids []string) (sorted []string, unparsable []string) {
	type parsed struct {
		raw string
		id  ID
	}

	sorted = make([]string, len(ids))
	copy(sorted, ids)

	var items []parsed
	var slots []int
	for i, s := range ids {
		id, err := Parse(s)
		if err != nil {
			unparsable = append(unparsable, s)
			continue
		}
		items = append(items, parsed{raw: s, id: id})
		slots = append(slots, i)
	}

	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a].id, items[b].id
		if x.Type != y.Type {
			return x.Type < y.Type
		}
		if x.Level != y.Level {
			return x.Level < y.Level
		}
		return x.Seq < y.Seq
	})

	for i, item := range items {
		sorted[slots[i]] = item.raw
	}
	return sorted, unparsable
}

// FindNextSequential returns the smallest unused positive sequential
// value for the given (type, level) pair among the existing IDs.
func FindNextSequential(existing []string, typeID string, level int) int {
	maxSeq := 0
	for _, s := range existing {
		id, err := Parse(s)
		if err != nil || id.Type != typeID {
			continue
		}
		switch {
		case level == 0 && id.Level == 0:
			if id.Seq > maxSeq {
				maxSeq = id.Seq
			}
		case level == 0 && id.Seq == 0:
			if id.Level > maxSeq {
				maxSeq = id.Level
			}
		case id.Level == level && id.Seq > 0:
			if id.Seq > maxSeq {
				maxSeq = id.Seq
			}
		}
	}
	return maxSeq + 1
}

// IsAncestor reports whether a is an ancestor of b. Both must parse,
// share a type, a must sit at a lower depth, and b's string form must
// extend a's with a dot-separated suffix.
func IsAncestor(a, b string) bool {
	ancestor, err := Parse(a)
	if err != nil {
		return false
	}
	descendant, err := Parse(b)
	if err != nil {
		return false
	}

	if ancestor.Type != descendant.Type {
		return false
	}
	if Depth(ancestor) >= Depth(descendant) {
		return false
	}
	return strings.HasPrefix(descendant.String(), ancestor.String()+".")
}
