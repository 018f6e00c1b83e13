package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveFirstDashDash(t *testing.T) {
	require.Equal(t, []string{}, removeFirstDashDash([]string{}))
	require.Equal(t, []string{}, removeFirstDashDash([]string{"--"}))
	require.Equal(t, []string{"-top"}, removeFirstDashDash([]string{"--", "-top"}))
	require.Equal(t, []string{"-top", "--", "-cum"}, removeFirstDashDash([]string{"-top", "--", "-cum"}))
}

func TestParseViewArgs(t *testing.T) {
	tests := []struct {
		name          string
		in            []string
		wantID        string
		wantPprofArgs []string
	}{
		{name: "no args views the last run", in: nil, wantID: "0"},
		{name: "index", in: []string{"-1"}, wantID: "-1", wantPprofArgs: []string{}},
		{name: "id prefix", in: []string{"3f9a"}, wantID: "3f9a", wantPprofArgs: []string{}},
		{name: "pprof flag only", in: []string{"-top"}, wantID: "0", wantPprofArgs: []string{"-top"}},
		{name: "separator without id", in: []string{"--", "-top"}, wantID: "0", wantPprofArgs: []string{"-top"}},
		{name: "index with separator", in: []string{"-2", "--", "-top", "-cum"}, wantID: "-2", wantPprofArgs: []string{"-top", "-cum"}},
		{name: "id with flags", in: []string{"3f9a", "-http=:8080"}, wantID: "3f9a", wantPprofArgs: []string{"-http=:8080"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotPprofArgs := parseViewArgs(tt.in)
			require.Equal(t, tt.wantID, gotID)
			require.Equal(t, tt.wantPprofArgs, gotPprofArgs)
		})
	}
}
