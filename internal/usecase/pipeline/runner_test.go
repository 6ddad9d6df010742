package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/usecase/notify"
	"politikk-moter/internal/usecase/pipeline"
	"politikk-moter/internal/usecase/report"
)

var today = time.Date(2025, 10, 13, 7, 0, 0, 0, time.UTC)

type fakeCollector struct {
	meetings []entity.Meeting
	err      error
	calls    []string
}

func (f *fakeCollector) Collect(_ context.Context, p entity.Pipeline, _ entity.Registry, _ time.Time, horizon int) (*extract.Result, error) {
	f.calls = append(f.calls, p.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &extract.Result{Meetings: f.meetings}, nil
}

type delivery struct {
	ref  string
	text string
}

type fakeDeliverer struct {
	sent   []delivery
	failOn string
}

func (f *fakeDeliverer) Deliver(_ context.Context, text, ref string) error {
	f.sent = append(f.sent, delivery{ref: ref, text: text})
	if f.failOn != "" && ref == f.failOn {
		return errors.New("webhook 500")
	}
	return nil
}

func meeting(t *testing.T, title, date, group string) entity.Meeting {
	t.Helper()
	m, err := entity.NewMeeting(entity.MeetingInput{Title: title, Date: date, Time: "10:00", SourceGroup: group})
	require.NoError(t, err)
	return m
}

func registry() entity.Registry {
	return entity.Registry{
		Sources: []entity.SourceConfig{
			{Name: "Sauda kommune", URL: "https://sauda.kommune.no", Type: entity.SourceTypeACOS, Groups: []string{"standard"}, Batch: "turnus"},
			{Name: "Strand kommune", URL: "https://strand.kommune.no", Type: entity.SourceTypeACOS, Groups: []string{"standard"}},
		},
		Pipelines: []entity.Pipeline{
			{
				Key:        "standard",
				Groups:     []string{"standard"},
				ChannelEnv: "SLACK_WEBHOOK_URL",
				Enabled:    true,
				Batches:    []entity.BatchRule{{Name: "turnus", Label: "Turnus", ChannelEnv: "SLACK_WEBHOOK_TURNUS"}},
			},
			{Key: "disabled", Groups: []string{"standard"}, ChannelEnv: "SLACK_WEBHOOK_URL"},
		},
	}
}

func newRunner(c pipeline.Collector, d notify.Deliverer, channels map[string]string, opts pipeline.Options) *pipeline.Runner {
	r := pipeline.NewRunner(c, notify.NewService(d, notify.MapLookup(channels)), registry(), opts)
	r.Now = func() time.Time { return today }
	return r
}

var allChannels = map[string]string{
	"SLACK_WEBHOOK_URL":    "hook-default",
	"SLACK_WEBHOOK_TURNUS": "hook-turnus",
}

func TestRunner_Run_DeliversEveryBatch(t *testing.T) {
	c := &fakeCollector{meetings: []entity.Meeting{
		meeting(t, "Kommunestyret", "2025-10-14", "Sauda kommune"),
		meeting(t, "Formannskapet", "2025-10-15", "Strand kommune"),
	}}
	d := &fakeDeliverer{}
	p, _ := registry().Pipeline("standard")

	ok := newRunner(c, d, allChannels, pipeline.Options{}).Run(context.Background(), p)

	require.True(t, ok)
	require.Len(t, d.sent, 2)
	assert.Equal(t, "hook-turnus", d.sent[0].ref)
	assert.Contains(t, d.sent[0].text, "– Turnus (1 møte)")
	assert.Contains(t, d.sent[0].text, "Kommunestyret (Sauda kommune)")
	assert.Equal(t, "hook-default", d.sent[1].ref)
	assert.Contains(t, d.sent[1].text, "– Øvrige (1 møte)")
	assert.Contains(t, d.sent[1].text, "• Strand kommune: 1 møte")
}

func TestRunner_Run_MissingChannel(t *testing.T) {
	c := &fakeCollector{meetings: []entity.Meeting{meeting(t, "Kommunestyret", "2025-10-14", "Sauda kommune")}}
	p, _ := registry().Pipeline("standard")

	tests := []struct {
		name  string
		force bool
		want  bool
	}{
		{name: "skipped without force", want: true},
		{name: "failure with force", force: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDeliverer{}
			r := newRunner(c, d, nil, pipeline.Options{Force: tt.force})

			assert.Equal(t, tt.want, r.Run(context.Background(), p))
			assert.Empty(t, d.sent)
		})
	}
}

func TestRunner_Run_BatchChannelFallsBack(t *testing.T) {
	c := &fakeCollector{meetings: []entity.Meeting{meeting(t, "Kommunestyret", "2025-10-14", "Sauda kommune")}}
	d := &fakeDeliverer{}
	p, _ := registry().Pipeline("standard")

	ok := newRunner(c, d, map[string]string{"SLACK_WEBHOOK_URL": "hook-default"}, pipeline.Options{Force: true}).Run(context.Background(), p)

	require.True(t, ok)
	require.Len(t, d.sent, 1)
	assert.Equal(t, "hook-default", d.sent[0].ref)
	assert.Contains(t, d.sent[0].text, "– Turnus (1 møte)")
}

func TestRunner_Run_FailedBatchDoesNotBlockOthers(t *testing.T) {
	c := &fakeCollector{meetings: []entity.Meeting{
		meeting(t, "Kommunestyret", "2025-10-14", "Sauda kommune"),
		meeting(t, "Formannskapet", "2025-10-15", "Strand kommune"),
	}}
	d := &fakeDeliverer{failOn: "hook-turnus"}
	p, _ := registry().Pipeline("standard")
	rep := &fakeReporter{}

	r := newRunner(c, d, allChannels, pipeline.Options{})
	r.Reporter = rep
	ok := r.Run(context.Background(), p)

	assert.False(t, ok)
	assert.Len(t, d.sent, 2, "remainder still attempted")
	assert.Equal(t, []string{"standard/turnus"}, rep.failures)
}

type fakeReporter struct {
	failures []string
}

func (f *fakeReporter) CaptureDeliveryFailure(pipeline, batch string, _ error) {
	f.failures = append(f.failures, pipeline+"/"+batch)
}

func TestRunner_Run_Debug(t *testing.T) {
	c := &fakeCollector{meetings: []entity.Meeting{meeting(t, "Kommunestyret", "2025-10-14", "Sauda kommune")}}
	d := &fakeDeliverer{}
	var out bytes.Buffer
	p, _ := registry().Pipeline("standard")

	ok := newRunner(c, d, nil, pipeline.Options{Debug: true, Force: true, Out: &out}).Run(context.Background(), p)

	assert.True(t, ok)
	assert.Empty(t, d.sent)
	assert.Contains(t, out.String(), "*Tirsdag 14. oktober 2025*")
	assert.Contains(t, out.String(), "standard: turnus")
}

func TestRunner_Run_EmptyPlaceholder(t *testing.T) {
	d := &fakeDeliverer{}
	p, _ := registry().Pipeline("standard")

	ok := newRunner(&fakeCollector{}, d, allChannels, pipeline.Options{}).Run(context.Background(), p)

	require.True(t, ok)
	require.Len(t, d.sent, 1)
	assert.Equal(t, "hook-default", d.sent[0].ref)
	assert.Contains(t, d.sent[0].text, report.EmptyBody)
	assert.Contains(t, d.sent[0].text, "• Strand kommune: 0 møter")
}

func TestRunner_Run_CollectError(t *testing.T) {
	d := &fakeDeliverer{}
	p, _ := registry().Pipeline("standard")

	ok := newRunner(&fakeCollector{err: context.Canceled}, d, allChannels, pipeline.Options{}).Run(context.Background(), p)

	assert.False(t, ok)
	assert.Empty(t, d.sent)
}

func TestRunner_RunAll(t *testing.T) {
	t.Run("enabled pipelines only", func(t *testing.T) {
		c := &fakeCollector{}
		ok := newRunner(c, &fakeDeliverer{}, allChannels, pipeline.Options{}).RunAll(context.Background())

		assert.True(t, ok)
		assert.Equal(t, []string{"standard"}, c.calls)
	})

	t.Run("named pipelines run even when disabled", func(t *testing.T) {
		c := &fakeCollector{}
		ok := newRunner(c, &fakeDeliverer{}, allChannels, pipeline.Options{}).RunAll(context.Background(), "disabled")

		assert.True(t, ok)
		assert.Equal(t, []string{"disabled"}, c.calls)
	})

	t.Run("unknown pipeline fails", func(t *testing.T) {
		c := &fakeCollector{}
		ok := newRunner(c, &fakeDeliverer{}, allChannels, pipeline.Options{}).RunAll(context.Background(), "nope", "standard")

		assert.False(t, ok)
		assert.Equal(t, []string{"standard"}, c.calls)
	})

	t.Run("one failure fails the run", func(t *testing.T) {
		c := &fakeCollector{meetings: []entity.Meeting{meeting(t, "Formannskapet", "2025-10-15", "Strand kommune")}}
		d := &fakeDeliverer{failOn: "hook-default"}
		ok := newRunner(c, d, allChannels, pipeline.Options{}).RunAll(context.Background())

		assert.False(t, ok)
		assert.True(t, strings.Contains(d.sent[0].text, "Formannskapet"))
	})
}
