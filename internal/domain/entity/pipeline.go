package entity

import (
	"errors"
	"fmt"
	"strings"
)

// BatchRule routes a subset of a pipeline's meetings to its own channel.
type BatchRule struct {
	Name       string   `yaml:"name" json:"name"`
	Label      string   `yaml:"label" json:"label"`
	ChannelEnv string   `yaml:"channel_env,omitempty" json:"channel_env,omitempty"`
	Members    []string `yaml:"members,omitempty" json:"members,omitempty"`
	Provenance []string `yaml:"provenance,omitempty" json:"provenance,omitempty"`
}

// Matches reports whether the meeting belongs to the batch, either by its
// source group or by its provenance tag.
func (b BatchRule) Matches(m Meeting) bool {
	for _, name := range b.Members {
		if name == m.SourceGroup {
			return true
		}
	}
	if m.Provenance == "" {
		return false
	}
	for _, tag := range b.Provenance {
		if tag == m.Provenance {
			return true
		}
	}
	return false
}

// Pipeline is one delivery flow: which sources to scan and where to send the
// result.
type Pipeline struct {
	Key         string      `yaml:"key" json:"key"`
	Description string      `yaml:"description" json:"description"`
	Groups      []string    `yaml:"groups" json:"groups"`
	Calendars   []string    `yaml:"calendars,omitempty" json:"calendars,omitempty"`
	ChannelEnv  string      `yaml:"channel_env" json:"channel_env"`
	Enabled     bool        `yaml:"enabled" json:"enabled"`
	Batches     []BatchRule `yaml:"batches,omitempty" json:"batches,omitempty"`
}

// Validate checks key, channel and batch rules.
func (p Pipeline) Validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return &ValidationError{Field: "key", Message: "pipeline key is required"}
	}
	if strings.TrimSpace(p.ChannelEnv) == "" {
		return &ValidationError{Field: "channel_env", Message: fmt.Sprintf("pipeline %q needs a channel_env", p.Key)}
	}
	seen := make(map[string]bool, len(p.Batches))
	for _, b := range p.Batches {
		if strings.TrimSpace(b.Name) == "" {
			return &ValidationError{Field: "batches", Message: fmt.Sprintf("pipeline %q has a batch without name", p.Key)}
		}
		if seen[b.Name] {
			return &ValidationError{Field: "batches", Message: fmt.Sprintf("pipeline %q has duplicate batch %q", p.Key, b.Name)}
		}
		seen[b.Name] = true
	}
	return nil
}

// Registry is the full set of configured sources, calendars and pipelines.
type Registry struct {
	Sources   []SourceConfig   `yaml:"sources" json:"sources"`
	Calendars []CalendarSource `yaml:"calendars" json:"calendars"`
	Pipelines []Pipeline       `yaml:"pipelines" json:"pipelines"`
}

// Validate checks every entry and the references between them. All problems
// are reported together.
func (r Registry) Validate() error {
	var errs []error

	names := make(map[string]bool, len(r.Sources))
	for _, s := range r.Sources {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if names[s.Name] {
			errs = append(errs, &ValidationError{Field: "sources", Message: fmt.Sprintf("duplicate source %q", s.Name)})
		}
		names[s.Name] = true
	}

	batches := make(map[string]bool)
	for _, p := range r.Pipelines {
		for _, b := range p.Batches {
			batches[b.Name] = true
		}
	}
	for _, s := range r.Sources {
		if s.Batch != "" && !batches[s.Batch] {
			errs = append(errs, &ValidationError{Field: "batch", Message: fmt.Sprintf("source %q references undefined batch %q", s.Name, s.Batch)})
		}
	}
	for _, c := range r.Calendars {
		if c.Batch != "" && !batches[c.Batch] {
			errs = append(errs, &ValidationError{Field: "batch", Message: fmt.Sprintf("calendar %q references undefined batch %q", c.ID, c.Batch)})
		}
	}

	calendars := make(map[string]bool, len(r.Calendars))
	for _, c := range r.Calendars {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if calendars[c.ID] {
			errs = append(errs, &ValidationError{Field: "calendars", Message: fmt.Sprintf("duplicate calendar %q", c.ID)})
		}
		calendars[c.ID] = true
	}

	keys := make(map[string]bool, len(r.Pipelines))
	for _, p := range r.Pipelines {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if keys[p.Key] {
			errs = append(errs, &ValidationError{Field: "pipelines", Message: fmt.Sprintf("duplicate pipeline %q", p.Key)})
		}
		keys[p.Key] = true
		for _, id := range p.Calendars {
			if !calendars[id] {
				errs = append(errs, &ValidationError{Field: "calendars", Message: fmt.Sprintf("pipeline %q references unknown calendar %q", p.Key, id)})
			}
		}
	}

	return errors.Join(errs...)
}

// SourcesForGroups returns the sources in any of groups, in configured order.
func (r Registry) SourcesForGroups(groups []string) []SourceConfig {
	var out []SourceConfig
	for _, s := range r.Sources {
		for _, g := range groups {
			if s.InGroup(g) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Pipeline looks up a pipeline by key.
func (r Registry) Pipeline(key string) (Pipeline, bool) {
	for _, p := range r.Pipelines {
		if p.Key == key {
			return p, true
		}
	}
	return Pipeline{}, false
}

// Calendar looks up a calendar source by id.
func (r Registry) Calendar(id string) (CalendarSource, bool) {
	for _, c := range r.Calendars {
		if c.ID == id {
			return c, true
		}
	}
	return CalendarSource{}, false
}

// CalendarsFor returns the calendar sources referenced by p.
func (r Registry) CalendarsFor(p Pipeline) []CalendarSource {
	out := make([]CalendarSource, 0, len(p.Calendars))
	for _, id := range p.Calendars {
		if c, ok := r.Calendar(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// ResolveBatches expands each batch rule's membership with the sources and
// calendars that name the batch. Sources outside the pipeline's groups are
// ignored.
func (r Registry) ResolveBatches(p Pipeline) []BatchRule {
	sources := r.SourcesForGroups(p.Groups)
	calendars := r.CalendarsFor(p)

	out := make([]BatchRule, 0, len(p.Batches))
	for _, b := range p.Batches {
		rule := BatchRule{
			Name:       b.Name,
			Label:      b.Label,
			ChannelEnv: b.ChannelEnv,
			Members:    appendUnique(nil, b.Members...),
			Provenance: appendUnique(nil, b.Provenance...),
		}
		for _, s := range sources {
			if s.Batch == b.Name {
				rule.Members = appendUnique(rule.Members, s.Name)
			}
		}
		for _, c := range calendars {
			if c.Batch == b.Name {
				rule.Provenance = appendUnique(rule.Provenance, c.ProvenanceTag())
			}
		}
		out = append(out, rule)
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
