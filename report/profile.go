package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/perfgo/citriage/model"
)

// profileBuilder folds test runs into a pprof profile whose stacks are
// test -> job, so that `go tool pprof` can show where CI time is spent.
type profileBuilder struct {
	profile   *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
	samples   map[string]*profile.Sample
}

func newProfileBuilder(now time.Time) *profileBuilder {
	return &profileBuilder{
		profile: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "runs", Unit: "count"},
				{Type: "duration", Unit: "nanoseconds"},
			},
			TimeNanos:  now.UnixNano(),
			PeriodType: &profile.ValueType{Type: "duration", Unit: "nanoseconds"},
			Period:     1,
		},
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
		samples:   make(map[string]*profile.Sample),
	}
}

// DurationProfile aggregates run counts and reported durations per test, job and status.
// Runs without a reported duration only contribute to the run count.
func DurationProfile(runs []*model.TestRun, now time.Time) *profile.Profile {
	b := newProfileBuilder(now)
	var first, last time.Time
	for _, run := range runs {
		if first.IsZero() || run.StartTS.Before(first) {
			first = run.StartTS
		}
		if run.StartTS.After(last) {
			last = run.StartTS
		}
		b.addRun(run)
	}
	if !first.IsZero() {
		b.profile.DurationNanos = last.Sub(first).Nanoseconds()
	}
	return b.profile
}

// WriteDurationProfile writes the gzip compressed profile.
func WriteDurationProfile(w io.Writer, runs []*model.TestRun, now time.Time) error {
	if err := DurationProfile(runs, now).Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func (b *profileBuilder) addRun(run *model.TestRun) {
	jobName := "unknown-job"
	if run.Job != nil && run.Job.Name != "" {
		jobName = run.Job.Name
	}
	// leaf first, like pprof stacks
	stack := []*profile.Location{
		b.getOrCreateLocation(run.Name),
		b.getOrCreateLocation(jobName),
	}

	key := fmt.Sprintf("%d:%d:%s", stack[0].ID, stack[1].ID, run.Status)
	sample, exists := b.samples[key]
	if !exists {
		sample = &profile.Sample{
			Location: stack,
			Value:    make([]int64, len(b.profile.SampleType)),
			Label:    map[string][]string{"status": {string(run.Status)}},
		}
		b.samples[key] = sample
		b.profile.Sample = append(b.profile.Sample, sample)
	}
	sample.Value[0]++
	sample.Value[1] += run.Runtime().Nanoseconds()
}

func (b *profileBuilder) getOrCreateLocation(name string) *profile.Location {
	if loc, exists := b.locations[name]; exists {
		return loc
	}
	loc := &profile.Location{
		ID:   uint64(len(b.profile.Location) + 1),
		Line: []profile.Line{{Function: b.getOrCreateFunction(name)}},
	}
	b.locations[name] = loc
	b.profile.Location = append(b.profile.Location, loc)
	return loc
}

func (b *profileBuilder) getOrCreateFunction(name string) *profile.Function {
	if fn, exists := b.functions[name]; exists {
		return fn
	}
	fn := &profile.Function{
		ID:   uint64(len(b.profile.Function) + 1),
		Name: name,
	}
	b.functions[name] = fn
	b.profile.Function = append(b.profile.Function, fn)
	return fn
}
