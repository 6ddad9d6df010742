package entity

import (
	"fmt"
	"strings"
)

// SourceType selects the markup strategy used for a source.
type SourceType string

const (
	SourceTypeACOS     SourceType = "acos"     // simple list
	SourceTypeOnACOS   SourceType = "onacos"   // calendar grid
	SourceTypeElements SourceType = "elements" // card list
	SourceTypeCustom   SourceType = "custom"   // provider recipe or generic scan
	SourceTypeFeed     SourceType = "feed"     // RSS/Atom
	SourceTypeStore    SourceType = "store"    // script-rendered structured cache
)

// Known provider recipes for SourceTypeCustom sources.
const (
	ProviderKlepp     = "klepp"
	ProviderEigersund = "eigersund"
	ProviderBymiljo   = "bymiljo"
)

var knownSourceTypes = map[SourceType]bool{
	SourceTypeACOS:     true,
	SourceTypeOnACOS:   true,
	SourceTypeElements: true,
	SourceTypeCustom:   true,
	SourceTypeFeed:     true,
	SourceTypeStore:    true,
}

var knownProviders = map[string]bool{
	ProviderKlepp:     true,
	ProviderEigersund: true,
	ProviderBymiljo:   true,
}

// IsKnown reports whether t is a supported source type.
func (t SourceType) IsKnown() bool {
	return knownSourceTypes[t]
}

// SourceConfig describes one municipal web source.
type SourceConfig struct {
	Name     string     `yaml:"name" json:"name"`
	URL      string     `yaml:"url" json:"url"`
	Type     SourceType `yaml:"type" json:"type"`
	Provider string     `yaml:"provider,omitempty" json:"provider,omitempty"`
	Groups   []string   `yaml:"groups" json:"groups"`
	Batch    string     `yaml:"batch,omitempty" json:"batch,omitempty"`
	Render   bool       `yaml:"render,omitempty" json:"render,omitempty"`
}

// Validate checks the name, URL, type and provider.
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "source name is required"}
	}
	if err := ValidateURL("url", s.URL); err != nil {
		return fmt.Errorf("source %q: %w", s.Name, err)
	}
	if !s.Type.IsKnown() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("source %q has unknown type %q", s.Name, s.Type)}
	}
	if s.Provider != "" && !knownProviders[s.Provider] {
		return &ValidationError{Field: "provider", Message: fmt.Sprintf("source %q has unknown provider %q", s.Name, s.Provider)}
	}
	return nil
}

// InGroup reports whether the source belongs to group.
func (s SourceConfig) InGroup(group string) bool {
	for _, g := range s.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// CalendarSource is a Google Calendar feed merged into a pipeline.
type CalendarSource struct {
	ID            string `yaml:"id" json:"id"`
	CalendarID    string `yaml:"calendar_id,omitempty" json:"calendar_id,omitempty"`
	CalendarIDEnv string `yaml:"calendar_id_env,omitempty" json:"calendar_id_env,omitempty"`
	Batch         string `yaml:"batch,omitempty" json:"batch,omitempty"`
}

// ProvenanceTag is the tag carried by meetings read from this calendar.
func (c CalendarSource) ProvenanceTag() string {
	return CalendarProvenance(c.ID)
}

// Validate requires an id and at least one way to resolve the calendar id.
func (c CalendarSource) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return &ValidationError{Field: "id", Message: "calendar source id is required"}
	}
	if c.CalendarID == "" && c.CalendarIDEnv == "" {
		return &ValidationError{Field: "calendar_id", Message: fmt.Sprintf("calendar %q needs calendar_id or calendar_id_env", c.ID)}
	}
	return nil
}

// CalendarProvenance builds the "calendar:<id>" provenance tag.
func CalendarProvenance(id string) string {
	return "calendar:" + id
}
