package gotestlog

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perfgo/citriage/model"
)

func TestMatchLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantStatus  model.Status
		wantName    string
		wantSeconds *float64
	}{
		{
			name:       "run",
			line:       "2024-06-26T04:41:47.7209465Z === RUN   TestAccNetworkDSPrivateLinkEndpoint_basic",
			wantStatus: model.StatusRun,
			wantName:   "TestAccNetworkDSPrivateLinkEndpoint_basic",
		},
		{
			name:        "pass with duration",
			line:        "2024-06-26T04:41:47.7228652Z --- PASS: TestAccNetworkRSPrivateLinkEndpointGCP_basic (424.50s)",
			wantStatus:  model.StatusPass,
			wantName:    "TestAccNetworkRSPrivateLinkEndpointGCP_basic",
			wantSeconds: ptr(424.5),
		},
		{
			name:        "fail with duration",
			line:        "2024-06-26T04:41:47.7168636Z --- FAIL: TestAccNetworkRSNetworkPeering_updateBasicAzure (443.97s)",
			wantStatus:  model.StatusFail,
			wantName:    "TestAccNetworkRSNetworkPeering_updateBasicAzure",
			wantSeconds: ptr(443.97),
		},
		{
			name:        "skip with trailing newline",
			line:        "2024-06-26T04:41:47.7171679Z --- SKIP: TestAccNetworkRSNetworkPeering_basicGCP (0.00s)\n",
			wantStatus:  model.StatusSkip,
			wantName:    "TestAccNetworkRSNetworkPeering_basicGCP",
			wantSeconds: ptr(0),
		},
		{
			name:       "masked duration",
			line:       "2024-06-26T04:41:47.7168636Z --- FAIL: TestAccNetworkRSNetworkPeering_basicAzure (***.50s)",
			wantStatus: model.StatusFail,
			wantName:   "TestAccNetworkRSNetworkPeering_basicAzure",
		},
		{
			name:        "trailing text after duration",
			line:        "2024-06-26T04:41:47.7228652Z --- PASS: TestFoo (1.50s) [cached]",
			wantStatus:  model.StatusPass,
			wantName:    "TestFoo",
			wantSeconds: ptr(1.5),
		},
		{
			name:       "timestamp without zone",
			line:       "2024-06-26T04:41:47.7209465 === RUN   TestFoo",
			wantStatus: model.StatusRun,
			wantName:   "TestFoo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := MatchLine(tt.line)
			require.True(t, ok)
			require.Equal(t, tt.wantStatus, match.Status)
			require.Equal(t, tt.wantName, match.Name)
			require.Equal(t, 2024, match.TS.Year())
			require.Equal(t, time.UTC, match.TS.Location())
			if tt.wantSeconds == nil {
				require.Nil(t, match.RunSeconds)
			} else {
				require.NotNil(t, match.RunSeconds)
				require.InDelta(t, *tt.wantSeconds, *match.RunSeconds, 1e-9)
			}
		})
	}
}

func TestMatchLineNoMatch(t *testing.T) {
	lines := []string{
		"2024-06-26T04:41:47.7229504Z PASS",
		"2024-09-17T00:22:05.6676147Z === RUN   TestAccConfigDSAtlasUsers_InvalidAttrCombinations/invalid_team_attribute_defined",
		`2024-06-26T04:41:47.7189990Z Project deletion failed: 667b98b5487d301c7124414d, error: HTTP 409 Conflict (Error code: "CANNOT_CLOSE_GROUP_ACTIVE_PEERING_CONNECTIONS")`,
		"=== RUN   TestAccResourcePolicy_invalidConfig",
		"2024-06-26T04:41:47.7228652Z     --- PASS: TestAccParent/child (0.00s)",
		"2024-06-26T04:41:47.7228652Z --- PASS: TestFoo (1.2.3s)",
		"2024-13-26T04:41:47.7228652Z --- PASS: TestFoo (1.00s)",
		"2024-06-26T04:41:47.7228652Z --- pass: TestFoo (1.00s)",
		"",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			_, ok := MatchLine(line)
			require.False(t, ok)
		})
	}
}

func TestMatchContextStart(t *testing.T) {
	name, ok := MatchContextStart("2024-06-26T00:58:20.7916997Z === NAME  TestAccBackupRSOnlineArchive")
	require.True(t, ok)
	require.Equal(t, "TestAccBackupRSOnlineArchive", name)

	_, ok = MatchContextStart("2024-06-26T00:58:20.7916997Z === RUN   TestAccBackupRSOnlineArchive")
	require.False(t, ok)
	_, ok = MatchContextStart("=== NAME  TestAccBackupRSOnlineArchive")
	require.False(t, ok)
}

var contextLines = []string{
	"2024-06-26T00:58:20.7918346Z     resource_online_archive_test.go:32: Step 2/7 error: Error running apply: exit status 1",
	"2024-06-26T00:58:20.7919682Z         ",
	"2024-06-26T00:58:20.7920573Z         Error: error creating MongoDB Atlas Online Archive:: undefined response type",
	"2024-06-26T00:58:20.7921224Z         ",
	"2024-06-26T00:58:20.7921829Z           with mongodbatlas_online_archive.users_archive,",
	"2024-06-26T00:58:20.7923085Z           on terraform_plugin_test.tf line 52, in resource \"mongodbatlas_online_archive\" \"users_archive\":",
	"2024-06-26T00:58:20.7924127Z           52: \tresource \"mongodbatlas_online_archive\" \"users_archive\" {",
}

var expectedContext = strings.Join([]string{
	"resource_online_archive_test.go:32: Step 2/7 error: Error running apply: exit status 1",
	"    ",
	"    Error: error creating MongoDB Atlas Online Archive:: undefined response type",
	"    ",
	"      with mongodbatlas_online_archive.users_archive,",
	"      on terraform_plugin_test.tf line 52, in resource \"mongodbatlas_online_archive\" \"users_archive\":",
	"      52: \tresource \"mongodbatlas_online_archive\" \"users_archive\" {",
}, "\n")

func TestExtractContext(t *testing.T) {
	var extracted []string
	for _, line := range contextLines {
		text, ok := ExtractContext(line)
		require.True(t, ok, line)
		extracted = append(extracted, text)
	}
	require.Equal(t, expectedContext, strings.Join(extracted, "\n"))
}

func TestExtractContextNoMatch(t *testing.T) {
	for _, line := range []string{
		"2024-06-26T00:58:20.7916997Z === NAME  TestAccBackupRSOnlineArchive",
		"2024-06-26T00:58:20.7916997Z --- FAIL: TestAccBackupRSOnlineArchive (12.00s)",
		"2024-06-26T00:58:20.7916997Z     ",
		"    indented without timestamp",
	} {
		_, ok := ExtractContext(line)
		require.False(t, ok, line)
	}
}

func TestClassificationIsStable(t *testing.T) {
	lines := append(slices.Clone(contextLines),
		"2024-06-26T04:41:47.7209465Z === RUN   TestFoo",
		"2024-06-26T04:41:48.0000000Z --- PASS: TestFoo (1.00s)",
		"2024-06-26T00:58:20.7916997Z === NAME  TestFoo",
	)
	for _, line := range lines {
		m1, ok1 := MatchLine(line)
		m2, ok2 := MatchLine(line)
		require.Equal(t, ok1, ok2)
		require.Equal(t, m1, m2)
		c1, cok1 := ExtractContext(line)
		c2, cok2 := ExtractContext(line)
		require.Equal(t, cok1, cok2)
		require.Equal(t, c1, c2)
		n1, nok1 := MatchContextStart(line)
		n2, nok2 := MatchContextStart(line)
		require.Equal(t, nok1, nok2)
		require.Equal(t, n1, n2)
	}
}

func ptr(f float64) *float64 {
	return &f
}
