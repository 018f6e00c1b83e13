package report

import (
	"regexp"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/perfgo/citriage/model"
)

// RerunArgs builds the go test arguments that rerun exactly the failed tests.
// It returns nil when nothing failed.
func RerunArgs(runs []*model.TestRun, pkg string) []string {
	names := FailedNames(runs)
	if len(names) == 0 {
		return nil
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}
	if pkg == "" {
		pkg = "./..."
	}
	return []string{"go", "test", "-count=1", "-run", "^(" + strings.Join(quoted, "|") + ")$", pkg}
}

// RerunCommand is RerunArgs as a single shell command line.
func RerunCommand(runs []*model.TestRun, pkg string) string {
	args := RerunArgs(runs, pkg)
	if args == nil {
		return ""
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = shellescape.Quote(arg)
	}
	return strings.Join(parts, " ")
}
