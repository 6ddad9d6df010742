package report

import (
	"fmt"

	"politikk-moter/internal/domain/entity"
)

// RemainderBatch names the batch of meetings no rule claimed.
const RemainderBatch = "default"

// Batch is one delivery unit: a subset of meetings bound for one channel.
type Batch struct {
	Name  string
	Label string
	// ChannelEnv is empty for batches that use the pipeline's channel.
	ChannelEnv string
	Meetings   []entity.Meeting
	// Expected lists the organisations shown with zero counts when absent.
	Expected []string
}

// HeadingSuffix is the batch label followed by its meeting count.
func (b Batch) HeadingSuffix() string {
	if b.Label == "" {
		return ""
	}
	return fmt.Sprintf("%s (%d %s)", b.Label, len(b.Meetings), plural(len(b.Meetings)))
}

// Partition assigns each meeting to the first rule it matches, or to the
// remainder batch. Input order is kept inside every batch. Empty batches
// are dropped, except that an empty input yields the remainder alone so a
// "no meetings" message still goes out.
func Partition(meetings []entity.Meeting, rules []entity.BatchRule, remainder Batch) []Batch {
	if remainder.Name == "" {
		remainder.Name = RemainderBatch
	}
	if len(meetings) == 0 {
		remainder.Meetings = nil
		return []Batch{remainder}
	}

	batches := make([]Batch, len(rules))
	for i, r := range rules {
		batches[i] = Batch{
			Name:       r.Name,
			Label:      r.Label,
			ChannelEnv: r.ChannelEnv,
			Expected:   r.Members,
		}
	}

	rest := remainder
	rest.Meetings = nil
next:
	for _, m := range meetings {
		for i, r := range rules {
			if r.Matches(m) {
				batches[i].Meetings = append(batches[i].Meetings, m)
				continue next
			}
		}
		rest.Meetings = append(rest.Meetings, m)
	}

	out := make([]Batch, 0, len(batches)+1)
	for _, b := range batches {
		if len(b.Meetings) > 0 {
			out = append(out, b)
		}
	}
	if len(rest.Meetings) > 0 {
		out = append(out, rest)
	}
	return out
}

// RemainderFor builds the remainder batch of p. Its expected organisations
// are the pipeline's sources that no rule claims.
func RemainderFor(p entity.Pipeline, sources []entity.SourceConfig, rules []entity.BatchRule, label string) Batch {
	claimed := make(map[string]bool)
	for _, r := range rules {
		for _, name := range r.Members {
			claimed[name] = true
		}
	}
	var expected []string
	for _, s := range sources {
		if !claimed[s.Name] {
			expected = append(expected, s.Name)
		}
	}
	return Batch{
		Name:     RemainderBatch,
		Label:    label,
		Expected: expected,
	}
}
