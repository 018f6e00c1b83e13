package gotestlog

// This file contains the line classifiers for timestamped go test output
// as found in GitHub Actions step logs.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/perfgo/citriage/model"
)

// LineMatch is a parsed status line.
type LineMatch struct {
	TS         time.Time
	Status     model.Status
	Name       string
	RunSeconds *float64
}

const tsPattern = `(?P<ts>\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z?)`

var (
	// 2024-06-26T04:41:47.7209465Z === RUN   TestAccNetworkDSPrivateLinkEndpoint_basic
	// 2024-06-26T04:41:47.7228652Z --- PASS: TestAccNetworkRSPrivateLinkEndpointGCP_basic (424.50s)
	// 2024-06-26T04:41:47.7228652Z --- FAIL: TestAccNetworkRSNetworkPeering_basicAzure (***.50s)
	// The name must be followed by whitespace, the duration or the end of the
	// line, so subtest lines like "=== RUN   TestA/sub" are not mistaken for TestA.
	// Secret masking in GitHub logs can replace digits of the duration with '*'.
	statusLinePattern = regexp.MustCompile(
		`^` + tsPattern + `\s[-=]+\s` +
			`(?P<status>RUN|PASS|FAIL|SKIP):?\s+` +
			`(?P<name>[\w_]+)` +
			`(?:\s*\((?P<seconds>[\d*.]+)s\))?` +
			`(?:\s.*)?$`,
	)

	// 2024-06-26T00:58:20.7916997Z === NAME  TestAccBackupRSOnlineArchive
	contextStartPattern = regexp.MustCompile(
		`^` + tsPattern + `\s[-=]+\sNAME\s+(?P<name>[\w_]+)`,
	)

	// 2024-06-26T00:58:20.7918346Z     resource_online_archive_test.go:32: Step 2/7 error: ...
	contextLinePattern = regexp.MustCompile(
		`^` + tsPattern + `\s{5}(?P<indent>\s*)(?P<relevant>.*)$`,
	)
)

// MatchLine classifies a status line. Lines that do not match, or whose
// timestamp or unmasked duration cannot be parsed, return false.
func MatchLine(line string) (LineMatch, bool) {
	m := statusLinePattern.FindStringSubmatch(trimNewline(line))
	if m == nil {
		return LineMatch{}, false
	}
	ts, err := parseTimestamp(m[statusLinePattern.SubexpIndex("ts")])
	if err != nil {
		return LineMatch{}, false
	}
	match := LineMatch{
		TS:     ts,
		Status: model.Status(m[statusLinePattern.SubexpIndex("status")]),
		Name:   m[statusLinePattern.SubexpIndex("name")],
	}
	// a masked duration is unknown, the status still counts
	if raw := m[statusLinePattern.SubexpIndex("seconds")]; raw != "" && !strings.Contains(raw, "*") {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 {
			return LineMatch{}, false
		}
		match.RunSeconds = &seconds
	}
	return match, true
}

// MatchContextStart returns the test name of a "NAME" marker line.
func MatchContextStart(line string) (string, bool) {
	m := contextStartPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if _, err := parseTimestamp(m[contextStartPattern.SubexpIndex("ts")]); err != nil {
		return "", false
	}
	return m[contextStartPattern.SubexpIndex("name")], true
}

// ExtractContext returns the payload of a context detail line with the
// indentation beyond the go test prefix kept and trailing whitespace removed.
// An empty payload is not a context line.
func ExtractContext(line string) (string, bool) {
	m := contextLinePattern.FindStringSubmatch(trimNewline(line))
	if m == nil {
		return "", false
	}
	text := m[contextLinePattern.SubexpIndex("indent")] +
		strings.TrimSpace(m[contextLinePattern.SubexpIndex("relevant")])
	if text == "" {
		return "", false
	}
	return text, true
}

func parseTimestamp(raw string) (time.Time, error) {
	if strings.HasSuffix(raw, "Z") {
		return time.Parse(time.RFC3339Nano, raw)
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", raw, time.UTC)
}

func trimNewline(line string) string {
	return strings.TrimRight(line, "\r\n")
}
