package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfgo/citriage/model"
)

type fakeHistory struct {
	seen  map[string]bool
	legit map[string]bool
}

func (f fakeHistory) Seen(signature string) bool  { return f.seen[signature] }
func (f fakeHistory) Legit(signature string) bool { return f.legit[signature] }

func failure(name string, context ...string) *model.TestRun {
	return &model.TestRun{Name: name, Status: model.StatusFail, ContextLines: context}
}

func TestSignature(t *testing.T) {
	a := failure("TestAccProject",
		"project_test.go:32: Step 2/7 error: Error running apply: exit status 1",
		"    ",
		"    Error: https://cloud.mongodb.com/api/atlas/v2/groups/667b98b5487d301c7124414d DELETE: HTTP 409 Conflict",
	)
	b := failure("TestAccProject",
		"project_test.go:40: Step 3/7 error: Error running apply: exit status 1",
		"    Error: https://cloud.mongodb.com/api/atlas/v2/groups/667b98b5487d301c71244999 DELETE: HTTP 409 Conflict",
	)
	require.Equal(t, Signature(a), Signature(b))
	require.Equal(t,
		"TestAccProject: Error: https://cloud.mongodb.com/api/atlas/vN/groups/<id> DELETE: HTTP N Conflict",
		Signature(a),
	)

	require.NotEqual(t, Signature(a), Signature(failure("TestAccOther", a.ContextLines...)))
	require.Equal(t, "TestAccOther: fallback line N", Signature(failure("TestAccOther", "", "fallback line 7")))
	require.Equal(t, "TestAccEmpty: ", Signature(failure("TestAccEmpty")))
}

func TestClassify(t *testing.T) {
	known := failure("TestKnown", "    Error: known failure")
	legit := failure("TestLegit", "    Error: project limit reached")

	history := fakeHistory{
		seen:  map[string]bool{Signature(known): true, Signature(legit): true},
		legit: map[string]bool{Signature(legit): true},
	}

	tests := []struct {
		name string
		run  *model.TestRun
		want []model.Classification
	}{
		{
			name: "pass is never tagged",
			run:  &model.TestRun{Name: "TestOK", Status: model.StatusPass, ContextLines: []string{"panic: boom"}},
		},
		{
			name: "skip is never tagged",
			run:  &model.TestRun{Name: "TestSkip", Status: model.StatusSkip},
		},
		{
			name: "known failure",
			run:  known,
		},
		{
			name: "new failure",
			run:  failure("TestNew", "    Error: something new"),
			want: []model.Classification{model.ClassificationFirstTimeError},
		},
		{
			name: "legit failure",
			run:  legit,
			want: []model.Classification{model.ClassificationLegitError},
		},
		{
			name: "panic and capacity are sorted",
			run: failure("TestCapacity",
				"    Error: OUT_OF_CAPACITY in region",
				"panic: runtime error: invalid memory address",
			),
			want: []model.Classification{
				model.ClassificationFirstTimeError,
				model.ClassificationOutOfCapacity,
				model.ClassificationPanic,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.run, history))
		})
	}
}

func TestApply(t *testing.T) {
	runs := []*model.TestRun{
		failure("TestA", "Error: a"),
		{Name: "TestB", Status: model.StatusPass},
	}
	Apply(runs, NoHistory{})
	require.Equal(t, []model.Classification{model.ClassificationFirstTimeError}, runs[0].Classifications)
	require.Nil(t, runs[1].Classifications)
}
