package stores

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/gittrunk/internal/hooks"
	"github.com/temirov/gittrunk/internal/prompt"
	"github.com/temirov/gittrunk/internal/utils/flags"
)

const (
	hooksUseConstant       = "hooks"
	hooksShortDescription  = "Install git hooks that keep a trunk store in step with the host"
	hooksLongDescription   = "hooks installs a post-commit hook that captures the store after every commit and a pre-push hook that publishes it whenever main is pushed."
	hookInstalledTemplate  = "Installed %s hook at %s\n"
	hookKeptTemplate       = "Kept existing %s hook at %s\n"
	installerErrorTemplate = "unable to construct hook installer: %w"
)

// HooksCommandBuilder assembles the hooks command.
type HooksCommandBuilder struct {
	Dependencies
}

// Build constructs the hooks command.
func (builder *HooksCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           hooksUseConstant,
		Short:         hooksShortDescription,
		Long:          hooksLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	flags.BindForceFlag(command)
	return command, nil
}

func (builder *HooksCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	var confirmer prompt.Confirmer = runtime.prompter
	if runtime.force {
		confirmer = prompt.AlwaysConfirmer{}
	}
	installer, installerError := hooks.NewInstaller(runtime.logger, runtime.repository, confirmer)
	if installerError != nil {
		return fmt.Errorf(installerErrorTemplate, installerError)
	}

	result, installError := installer.Install(command.Context(), hooks.InstallOptions{
		RepositoryPath: runtime.host.RootPath(),
		Store:          runtime.store.String(),
		Force:          runtime.force,
	})
	if installError != nil {
		return installError
	}

	for _, outcome := range result.Hooks {
		template := hookKeptTemplate
		if outcome.Installed {
			template = hookInstalledTemplate
		}
		fmt.Fprintf(runtime.output, template, outcome.Name, outcome.Path)
	}
	return nil
}
