// Package solutions holds the exemplar remediations keyed by detector id.
package solutions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

// Library maps a detector id to a known-good remediation object. Read-only after Load.
type Library struct {
	exemplars map[string]json.RawMessage
}

// Load reads a JSON or YAML library. A missing or unreadable file is a configuration error.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: solution library %s: %v", apperrors.ErrConfiguration, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON builds a Library from a JSON object of exemplars.
func ParseJSON(data []byte) (*Library, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: solution library is not a JSON object: %v", apperrors.ErrConfiguration, err)
	}
	return newLibrary(raw)
}

// ParseYAML builds a Library from a YAML mapping of exemplars.
func ParseYAML(data []byte) (*Library, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: solution library is not a YAML mapping: %v", apperrors.ErrConfiguration, err)
	}
	raw := make(map[string]json.RawMessage, len(doc))
	for id, v := range doc {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: solution %q: %v", apperrors.ErrConfiguration, id, err)
		}
		raw[id] = encoded
	}
	return newLibrary(raw)
}

func newLibrary(raw map[string]json.RawMessage) (*Library, error) {
	exemplars := make(map[string]json.RawMessage, len(raw))
	for id, v := range raw {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err != nil {
			return nil, fmt.Errorf("%w: solution %q must be an object", apperrors.ErrConfiguration, id)
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, v, "", "  "); err != nil {
			return nil, fmt.Errorf("%w: solution %q: %v", apperrors.ErrConfiguration, id, err)
		}
		exemplars[id] = indented.Bytes()
	}
	return &Library{exemplars: exemplars}, nil
}

// Get returns the exemplar for a detector id as indented JSON.
func (l *Library) Get(detectorID string) (json.RawMessage, bool) {
	v, ok := l.exemplars[detectorID]
	return v, ok
}

// MustGet returns the exemplar or apperrors.ErrMissingTemplate.
func (l *Library) MustGet(detectorID string) (json.RawMessage, error) {
	v, ok := l.Get(detectorID)
	if !ok {
		return nil, fmt.Errorf("%w: no solution template for detector %q", apperrors.ErrMissingTemplate, detectorID)
	}
	return v, nil
}

// IDs returns the detector ids present, sorted.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.exemplars))
	for id := range l.exemplars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
