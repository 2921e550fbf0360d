package scripts

import (
	"encoding/json"
	"sync"
)

// ScriptDescriptor identifies one detected script. Descriptors are built by
// Detect and carry no file contents; the description is read lazily on first
// request and cached.
type ScriptDescriptor struct {
	// Name is the file name without its extension, unique within a skill.
	Name string
	// RelativePath locates the script under the skill directory, always with
	// forward slashes.
	RelativePath string
	// Language is the interpreter family derived from the file extension.
	Language Language

	absPath  string
	descOnce sync.Once
	desc     string
}

// Description extracts the script's leading comment block on first call and
// caches the result. Scripts without a readable description yield "".
func (d *ScriptDescriptor) Description() string {
	d.descOnce.Do(func() {
		d.desc = ExtractDescription(d.absPath, d.Language)
	})
	return d.desc
}

// MarshalJSON includes the lazily extracted description, so serializing a
// descriptor set is what forces the reads.
func (d *ScriptDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name         string `json:"name"`
		RelativePath string `json:"relativePath"`
		Language     string `json:"language"`
		Description  string `json:"description,omitempty"`
	}{
		Name:         d.Name,
		RelativePath: d.RelativePath,
		Language:     string(d.Language),
		Description:  d.Description(),
	})
}
