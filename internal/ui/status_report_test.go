package ui_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/ui"
)

const (
	testReportRemoteConstant = "origin"
	testReportLocalHash      = "0123456789abcdef0123456789abcdef01234567"
	testReportRemoteHash     = "89abcdef0123456789abcdef0123456789abcdef"
)

func sampleStatuses() []trunk.StoreStatus {
	return []trunk.StoreStatus{
		{
			Store:              "docs",
			State:              trunk.StateLocalAhead,
			Materialized:       true,
			UncommittedChanges: 2,
			LocalHash:          testReportLocalHash,
			LocalShortHash:     "0123456",
			LocalCommitTime:    time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC),
			Remote:             testReportRemoteConstant,
			RemoteHash:         testReportRemoteHash,
		},
		{
			Store:             "notes",
			State:             trunk.StateUntracked,
			Materialized:      true,
			Remote:            testReportRemoteConstant,
			RemoteCheckFailed: true,
			RemoteError:       "remote unreachable",
		},
	}
}

func TestStatusReportRendererText(testInstance *testing.T) {
	var output bytes.Buffer
	renderer, rendererError := ui.NewStatusReportRenderer(&output, ui.ReportFormatText)
	require.NoError(testInstance, rendererError)

	require.NoError(testInstance, renderer.Render(testReportRemoteConstant, sampleStatuses()))

	expected := "Trunk stores (remote 'origin')\n" +
		"docs  local ahead\n" +
		"  working copy: materialized, 2 uncommitted change(s)\n" +
		"  local ref:    0123456 (2026-03-04 10:30:00 +0000)\n" +
		"  remote ref:   " + testReportRemoteHash + "\n" +
		"notes  untracked\n" +
		"  working copy: materialized, clean\n" +
		"  local ref:    absent\n" +
		"  remote ref:   check failed: remote unreachable\n"
	if diff := cmp.Diff(expected, output.String()); len(diff) > 0 {
		testInstance.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
}

func TestStatusReportRendererTextWithoutStores(testInstance *testing.T) {
	var output bytes.Buffer
	renderer, rendererError := ui.NewStatusReportRenderer(&output, "")
	require.NoError(testInstance, rendererError)

	require.NoError(testInstance, renderer.Render("upstream", nil))
	require.Equal(testInstance, "Trunk stores (remote 'upstream')\nNo trunk stores found.\n", output.String())
}

func TestStatusReportRendererYAMLRoundTrips(testInstance *testing.T) {
	var output bytes.Buffer
	renderer, rendererError := ui.NewStatusReportRenderer(&output, ui.ReportFormatYAML)
	require.NoError(testInstance, rendererError)

	statuses := sampleStatuses()
	require.NoError(testInstance, renderer.Render(testReportRemoteConstant, statuses))
	require.Contains(testInstance, output.String(), "state: local ahead\n")
	require.Contains(testInstance, output.String(), "remote_check_failed: true\n")
	require.NotContains(testInstance, output.String(), "local_hash: \"\"")

	var decoded []trunk.StoreStatus
	require.NoError(testInstance, yaml.Unmarshal(output.Bytes(), &decoded))
	if diff := cmp.Diff(statuses, decoded); len(diff) > 0 {
		testInstance.Fatalf("decoded statuses differ (-want +got):\n%s", diff)
	}
}

func TestParseReportFormat(testInstance *testing.T) {
	testCases := []struct {
		name          string
		value         string
		expected      ui.ReportFormat
		expectedError bool
	}{
		{name: "default", value: "", expected: ui.ReportFormatText},
		{name: "text", value: "text", expected: ui.ReportFormatText},
		{name: "yaml_mixed_case", value: " YAML ", expected: ui.ReportFormatYAML},
		{name: "unsupported", value: "json", expectedError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			format, parseError := ui.ParseReportFormat(testCase.value)
			if testCase.expectedError {
				require.Error(subTest, parseError)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expected, format)
		})
	}

	_, missingWriter := ui.NewStatusReportRenderer(nil, ui.ReportFormatText)
	require.ErrorIs(testInstance, missingWriter, ui.ErrWriterNotConfigured)
}
