package stores

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/utils/flags"
)

const (
	pushUseConstant           = "push"
	pushShortDescription      = "Publish refs/trunk/<store> to the remote"
	pushLongDescription       = "push sends refs/trunk/<store> to the same ref on the remote. Rejected non-fast-forward updates are reported, never forced."
	pushPublishedTemplate     = "Pushed trunk store '%s' to '%s' at %s\n"
	deleteUseConstant         = "delete"
	deleteShortDescription    = "Remove a trunk store everywhere"
	deleteLongDescription     = "delete removes .trunk/<store>, refs/trunk/<store> in the host repository, and refs/trunk/<store> on the remote."
	deleteRemovedTemplate     = "Deleted trunk store '%s' from %s\n"
	deleteNothingTemplate     = "Trunk store '%s' was not found in any scope\n"
	deleteScopeWorkingCopy    = "working tree"
	deleteScopeLocalReference = "local refs"
	deleteScopeRemoteTemplate = "remote '%s'"
	deleteScopeSeparator      = ", "
)

// PushCommandBuilder assembles the push command.
type PushCommandBuilder struct {
	Dependencies
}

// Build constructs the push command.
func (builder *PushCommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           pushUseConstant,
		Short:         pushShortDescription,
		Long:          pushLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}, nil
}

func (builder *PushCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	result, pushError := runtime.service.Push(command.Context(), runtime.host, trunk.PushOptions{Store: runtime.store, Remote: runtime.remote})
	if pushError != nil {
		return pushError
	}

	fmt.Fprintf(runtime.output, pushPublishedTemplate, result.Store, result.Remote, shortHash(result.Hash))
	return nil
}

// DeleteCommandBuilder assembles the delete command.
type DeleteCommandBuilder struct {
	Dependencies
}

// Build constructs the delete command.
func (builder *DeleteCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           deleteUseConstant,
		Short:         deleteShortDescription,
		Long:          deleteLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	flags.BindForceFlag(command)
	return command, nil
}

func (builder *DeleteCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	result, deleteError := runtime.service.Delete(command.Context(), runtime.host, trunk.DeleteOptions{
		Store:  runtime.store,
		Remote: runtime.remote,
		Force:  runtime.force,
	})
	if deleteError != nil {
		return reportOutcome(runtime.output, runtime.store, deleteError)
	}

	var scopes []string
	if result.RemovedWorkingCopy {
		scopes = append(scopes, deleteScopeWorkingCopy)
	}
	if result.RemovedLocalReference {
		scopes = append(scopes, deleteScopeLocalReference)
	}
	if result.RemovedRemoteReference {
		scopes = append(scopes, fmt.Sprintf(deleteScopeRemoteTemplate, runtime.remote))
	}
	if len(scopes) == 0 {
		fmt.Fprintf(runtime.output, deleteNothingTemplate, result.Store)
		return nil
	}
	fmt.Fprintf(runtime.output, deleteRemovedTemplate, result.Store, strings.Join(scopes, deleteScopeSeparator))
	return nil
}
