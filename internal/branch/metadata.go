package branch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MetadataFileName is the metadata file inside each branch directory.
const MetadataFileName = "branch_metadata.json"

// Metadata records where a branch came from.
type Metadata struct {
	BranchName          string `json:"branch_name"`
	Description         string `json:"description"`
	RootSystemID        int64  `json:"root_system_id"`
	RootSystemName      string `json:"root_system_name"`
	RootSystemHierarchy string `json:"root_system_hierarchy"`
	CreatedDate         string `json:"created_date"`
	ParentProject       string `json:"parent_project"`
	CreatedFromBaseline string `json:"created_from_baseline"`
}

// WriteMetadata writes branch metadata into a branch directory.
func WriteMetadata(branchPath string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal branch metadata: %w", err)
	}
	path := filepath.Join(branchPath, MetadataFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write branch metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads branch metadata from a branch directory.
func ReadMetadata(branchPath string) (*Metadata, error) {
	path := filepath.Join(branchPath, MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read branch metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse branch metadata: %w", err)
	}
	return &meta, nil
}
