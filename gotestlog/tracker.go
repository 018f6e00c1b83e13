package gotestlog

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"maps"
	"os"
	"slices"

	"github.com/acarl005/stripansi"
	"github.com/rs/zerolog"

	"github.com/perfgo/citriage/model"
)

// maxLineSize bounds a single log line; GitHub step logs can contain very long lines.
const maxLineSize = 1024 * 1024

// Tracker folds the lines of one log step into completed test runs.
// A Tracker keeps per-stream state and must not be shared between streams.
type Tracker struct {
	logger zerolog.Logger
	job    *model.Job
	step   int

	lineNumber int
	// runs that have been created but not yet terminated, keyed by name
	inFlight map[string]*model.TestRun

	// open NAME block, contextOpen is false while idle
	contextOpen bool
	contextTest string
	pending     []string

	// context of a NAME block whose test was not in flight when the block
	// closed; it is only attached if the very next line creates that test
	orphanTest    string
	orphanContext []string
}

// Result is a fully consumed log step.
type Result struct {
	Runs []*model.TestRun
	// Sorted names of runs whose terminal line never appeared
	Unfinished []string
}

// NewTracker creates a tracker for a single log step of a job.
func NewTracker(logger zerolog.Logger, job *model.Job, step int) *Tracker {
	return &Tracker{
		logger:   logger,
		job:      job,
		step:     step,
		inFlight: make(map[string]*model.TestRun),
	}
}

// Feed consumes the next line of the stream. It returns the run completed by
// this line, if any. Line numbers start at 0.
func (t *Tracker) Feed(line string) (*model.TestRun, bool) {
	number := t.lineNumber
	t.lineNumber++

	if t.contextOpen {
		if text, ok := ExtractContext(line); ok {
			t.pending = append(t.pending, text)
			return nil, false
		}
		t.closeContext()
	}

	run, done := t.feedIdle(line, number)
	t.orphanTest, t.orphanContext = "", nil
	return run, done
}

func (t *Tracker) feedIdle(line string, number int) (*model.TestRun, bool) {
	if name, ok := MatchContextStart(line); ok {
		t.contextOpen = true
		t.contextTest = name
		return nil, false
	}

	match, ok := MatchLine(line)
	if !ok {
		return nil, false
	}

	if existing, ok := t.inFlight[match.Name]; ok {
		delete(t.inFlight, match.Name)
		finish(existing, match, line, number)
		t.logger.Debug().
			Str("test", existing.Name).
			Str("status", string(existing.Status)).
			Int("line", number).
			Msg("Test finished")
		return existing, true
	}

	run := &model.TestRun{
		Name:       match.Name,
		Status:     match.Status,
		StartLine:  model.LineInfo{Number: number, Text: line},
		StartTS:    match.TS,
		RunSeconds: match.RunSeconds,
		Job:        t.job,
		TestStep:   t.step,
	}
	if t.orphanTest == run.Name {
		run.ContextLines = append(run.ContextLines, t.orphanContext...)
	}
	t.inFlight[run.Name] = run
	return nil, false
}

// closeContext moves the pending context lines to the in-flight run they describe.
func (t *Tracker) closeContext() {
	if run, ok := t.inFlight[t.contextTest]; ok {
		run.ContextLines = append(run.ContextLines, t.pending...)
	} else if len(t.pending) > 0 {
		t.orphanTest = t.contextTest
		t.orphanContext = slices.Clone(t.pending)
	}
	t.contextOpen = false
	t.contextTest = ""
	t.pending = t.pending[:0]
}

func finish(run *model.TestRun, match LineMatch, line string, number int) {
	if match.RunSeconds != nil {
		run.RunSeconds = match.RunSeconds
	}
	run.FinishLine = &model.LineInfo{Number: number, Text: line}
	run.Status = match.Status
	ts := match.TS
	run.FinishTS = &ts
}

// Unfinished returns the sorted names of the runs still in flight.
func (t *Tracker) Unfinished() []string {
	return slices.Sorted(maps.Keys(t.inFlight))
}

// Runs feeds lines to the tracker and yields completed runs as they finish.
// Stopping the iteration early leaves the tracker usable and consistent.
func (t *Tracker) Runs(lines iter.Seq[string]) iter.Seq[*model.TestRun] {
	return func(yield func(*model.TestRun) bool) {
		for line := range lines {
			if run, ok := t.Feed(line); ok {
				if !yield(run) {
					return
				}
			}
		}
		// an open NAME block at the end of the stream still belongs to its run
		if t.contextOpen {
			t.closeContext()
		}
		if unfinished := t.Unfinished(); len(unfinished) > 0 {
			t.logger.Warn().Strs("unfinished", unfinished).Msg("Unfinished tests")
		}
	}
}

// Parse reads a whole raw log step and returns its completed runs and the
// names of the runs left unfinished. ANSI colour sequences are removed from
// every line before it is classified.
func (t *Tracker) Parse(reader io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var scanErr error
	lines := func(yield func(string) bool) {
		for scanner.Scan() {
			if !yield(stripansi.Strip(scanner.Text())) {
				return
			}
		}
		scanErr = scanner.Err()
	}

	result := &Result{}
	for run := range t.Runs(lines) {
		result.Runs = append(result.Runs, run)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("error reading input: %w", scanErr)
	}
	result.Unfinished = t.Unfinished()
	return result, nil
}

// ParseFile parses the log step stored at path.
func ParseFile(logger zerolog.Logger, path string, job *model.Job, step int) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	result, err := NewTracker(logger, job, step).Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return result, nil
}

// ParseLines is Parse for already materialised, clean lines.
func ParseLines(logger zerolog.Logger, lines []string, job *model.Job, step int) *Result {
	t := NewTracker(logger, job, step)
	result := &Result{}
	for run := range t.Runs(slices.Values(lines)) {
		result.Runs = append(result.Runs, run)
	}
	result.Unfinished = t.Unfinished()
	return result
}
