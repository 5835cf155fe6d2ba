package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gittrunk/internal/trunk"
)

// ReportFormat selects how StatusReportRenderer writes store statuses.
type ReportFormat string

const (
	// ReportFormatText renders a styled report for terminals.
	ReportFormatText ReportFormat = "text"
	// ReportFormatYAML renders the statuses as a YAML sequence.
	ReportFormatYAML ReportFormat = "yaml"
)

const (
	reportTitleTemplate          = "Trunk stores (remote '%s')"
	reportStoreHeaderTemplate    = "%s  %s"
	reportWorkingCopyTemplate    = "  working copy: %s"
	reportLocalReferenceTemplate = "  local ref:    %s"
	reportRemoteTemplate         = "  remote ref:   %s"
	reportCommitTemplate         = "%s (%s)"
	reportChangesTemplate        = "materialized, %d uncommitted change(s)"
	reportRemoteFailureTemplate  = "check failed: %s"
	reportMaterializedClean      = "materialized, clean"
	reportAbsentValue            = "absent"
	reportEmptyMessage           = "No trunk stores found."
	reportCommitTimeLayout       = "2006-01-02 15:04:05 -0700"
	reportNewline                = "\n"
	unsupportedFormatTemplate    = "unsupported report format %q"
	writeReportErrorTemplate     = "unable to write status report: %w"
	encodeReportErrorTemplate    = "unable to encode status report: %w"
)

// ErrWriterNotConfigured indicates the renderer has no destination.
var ErrWriterNotConfigured = errors.New("status report writer not configured")

// ParseReportFormat maps a flag value onto a ReportFormat.
func ParseReportFormat(value string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(value))) {
	case ReportFormatText, "":
		return ReportFormatText, nil
	case ReportFormatYAML:
		return ReportFormatYAML, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplate, value)
	}
}

type reportStyles struct {
	title   lipgloss.Style
	subtle  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
}

// StatusReportRenderer writes reconciled store statuses.
type StatusReportRenderer struct {
	writer io.Writer
	format ReportFormat
	styles reportStyles
}

// NewStatusReportRenderer builds a renderer whose colors follow the capabilities of writer.
func NewStatusReportRenderer(writer io.Writer, format ReportFormat) (*StatusReportRenderer, error) {
	if writer == nil {
		return nil, ErrWriterNotConfigured
	}
	if _, parseError := ParseReportFormat(string(format)); parseError != nil {
		return nil, parseError
	}
	if len(format) == 0 {
		format = ReportFormatText
	}

	renderer := lipgloss.NewRenderer(writer)
	return &StatusReportRenderer{
		writer: writer,
		format: format,
		styles: reportStyles{
			title:   renderer.NewStyle().Bold(true),
			subtle:  renderer.NewStyle().Foreground(lipgloss.Color("241")),
			success: renderer.NewStyle().Foreground(lipgloss.Color("42")),
			failure: renderer.NewStyle().Foreground(lipgloss.Color("196")),
			warning: renderer.NewStyle().Foreground(lipgloss.Color("214")),
		},
	}, nil
}

// Render writes statuses in the configured format.
func (renderer *StatusReportRenderer) Render(remote string, statuses []trunk.StoreStatus) error {
	if renderer.format == ReportFormatYAML {
		return renderer.renderYAML(statuses)
	}
	return renderer.renderText(remote, statuses)
}

func (renderer *StatusReportRenderer) renderYAML(statuses []trunk.StoreStatus) error {
	if statuses == nil {
		statuses = []trunk.StoreStatus{}
	}
	encoder := yaml.NewEncoder(renderer.writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(statuses); encodeError != nil {
		return fmt.Errorf(encodeReportErrorTemplate, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(encodeReportErrorTemplate, closeError)
	}
	return nil
}

func (renderer *StatusReportRenderer) renderText(remote string, statuses []trunk.StoreStatus) error {
	lines := []string{renderer.styles.title.Render(fmt.Sprintf(reportTitleTemplate, remote))}
	if len(statuses) == 0 {
		lines = append(lines, renderer.styles.subtle.Render(reportEmptyMessage))
	}
	for _, status := range statuses {
		lines = append(lines, renderer.storeLines(status)...)
	}

	if _, writeError := io.WriteString(renderer.writer, strings.Join(lines, reportNewline)+reportNewline); writeError != nil {
		return fmt.Errorf(writeReportErrorTemplate, writeError)
	}
	return nil
}

func (renderer *StatusReportRenderer) storeLines(status trunk.StoreStatus) []string {
	header := fmt.Sprintf(reportStoreHeaderTemplate, renderer.styles.title.Render(status.Store), renderer.stateStyle(status.State).Render(string(status.State)))

	workingCopy := renderer.styles.subtle.Render(reportAbsentValue)
	if status.Materialized {
		workingCopy = reportMaterializedClean
		if status.HasUncommittedChanges() {
			workingCopy = renderer.styles.warning.Render(fmt.Sprintf(reportChangesTemplate, status.UncommittedChanges))
		}
	}

	localReference := renderer.styles.subtle.Render(reportAbsentValue)
	if len(status.LocalHash) > 0 {
		localReference = fmt.Sprintf(reportCommitTemplate, status.LocalShortHash, status.LocalCommitTime.Format(reportCommitTimeLayout))
	}

	remoteReference := renderer.styles.subtle.Render(reportAbsentValue)
	switch {
	case status.RemoteCheckFailed:
		remoteReference = renderer.styles.failure.Render(fmt.Sprintf(reportRemoteFailureTemplate, status.RemoteError))
	case len(status.RemoteHash) > 0:
		remoteReference = status.RemoteHash
	}

	return []string{
		header,
		fmt.Sprintf(reportWorkingCopyTemplate, workingCopy),
		fmt.Sprintf(reportLocalReferenceTemplate, localReference),
		fmt.Sprintf(reportRemoteTemplate, remoteReference),
	}
}

func (renderer *StatusReportRenderer) stateStyle(state trunk.StoreState) lipgloss.Style {
	switch state {
	case trunk.StateSynchronized:
		return renderer.styles.success
	case trunk.StateDiverged, trunk.StateNotFound:
		return renderer.styles.failure
	case trunk.StateLocalAhead, trunk.StateRemoteAhead, trunk.StateUntracked:
		return renderer.styles.warning
	default:
		return renderer.styles.subtle
	}
}
