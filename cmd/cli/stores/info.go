package stores

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/ui"
	"github.com/temirov/gittrunk/internal/utils/flags"
)

const (
	infoUseConstant        = "info"
	infoShortDescription   = "Report trunk store state across working tree, local refs, and remote"
	infoLongDescription    = "info classifies a store by comparing .trunk/<store>, refs/trunk/<store>, and the remote ref. With --all every store known to any scope is reported."
	infoAllFlagName        = "all"
	infoAllFlagUsage       = "Report every store found locally or on the remote"
	infoOutputFlagName     = "output"
	infoOutputFlagUsage    = "Report format"
	infoOutputFlagShortcut = "o"
)

var infoOutputChoices = []string{string(ui.ReportFormatText), string(ui.ReportFormatYAML)}

// InfoCommandBuilder assembles the info command.
type InfoCommandBuilder struct {
	Dependencies
}

// Build constructs the info command.
func (builder *InfoCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           infoUseConstant,
		Short:         infoShortDescription,
		Long:          infoLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	command.Flags().Bool(infoAllFlagName, false, infoAllFlagUsage)
	command.Flags().StringP(infoOutputFlagName, infoOutputFlagShortcut, "", flags.FormatChoiceUsage(string(ui.ReportFormatText), infoOutputChoices, infoOutputFlagUsage))
	return command, nil
}

func (builder *InfoCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	output, choiceError := flags.ValidateChoice(infoOutputFlagName, flags.ResolveString(command, infoOutputFlagName, runtime.configuration.Info.Output), infoOutputChoices)
	if choiceError != nil {
		return choiceError
	}
	renderer, rendererError := ui.NewStatusReportRenderer(runtime.output, ui.ReportFormat(output))
	if rendererError != nil {
		return rendererError
	}

	all, _ := command.Flags().GetBool(infoAllFlagName)
	statuses, statusError := runtime.service.Status(command.Context(), runtime.host, trunk.StatusOptions{
		Store:  runtime.store,
		Remote: runtime.remote,
		All:    all,
	})
	if statusError != nil {
		return statusError
	}
	return renderer.Render(runtime.remote, statuses)
}
