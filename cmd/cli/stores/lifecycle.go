package stores

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/utils/flags"
)

const (
	initUseConstant              = "init"
	initShortDescription         = "Create a trunk store with an initial commit"
	initLongDescription          = "init creates .trunk/<store> as a nested repository with a readme commit and records it under refs/trunk/<store>."
	initCreatedTemplate          = "Initialized trunk store '%s' at %s\n"
	initReplacedTemplate         = "Reinitialized trunk store '%s' at %s\n"
	commitUseConstant            = "commit"
	commitShortDescription       = "Record store changes under refs/trunk/<store>"
	commitLongDescription        = "commit stages every change in .trunk/<store>, commits it, and advances refs/trunk/<store> in the host repository."
	commitMessageFlagName        = "message"
	commitMessageFlagShorthand   = "m"
	commitMessageFlagUsage       = "Commit message used with --force"
	commitRecordedTemplate       = "Committed %d change(s) to trunk store '%s' at %s\n"
	commitRecoveredTemplate      = "Recorded pending commit of trunk store '%s' at %s\n"
	checkoutUseConstant          = "checkout"
	checkoutShortDescription     = "Materialize a trunk store into .trunk/<store>"
	checkoutLongDescription      = "checkout rebuilds .trunk/<store> from refs/trunk/<store>, fetching the ref from the remote when it is missing locally."
	checkoutMaterializedTemplate = "Checked out trunk store '%s' from %s history at %s\n"
	steganoUseConstant           = "stegano"
	steganoShortDescription      = "Hide a trunk store working copy while keeping its history"
	steganoLongDescription       = "stegano removes .trunk/<store> from the working tree. refs/trunk/<store> and the remote stay untouched."
	steganoConcealedTemplate     = "Concealed trunk store '%s'\n"
	steganoAbsentTemplate        = "Trunk store '%s' is not checked out\n"
)

// InitCommandBuilder assembles the init command.
type InitCommandBuilder struct {
	Dependencies
}

// Build constructs the init command.
func (builder *InitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           initUseConstant,
		Short:         initShortDescription,
		Long:          initLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	flags.BindForceFlag(command)
	return command, nil
}

func (builder *InitCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	result, initializeError := runtime.service.Initialize(command.Context(), runtime.host, trunk.InitializeOptions{Store: runtime.store, Force: runtime.force})
	if initializeError != nil {
		return reportOutcome(runtime.output, runtime.store, initializeError)
	}

	template := initCreatedTemplate
	if result.Reinitialized {
		template = initReplacedTemplate
	}
	fmt.Fprintf(runtime.output, template, result.Store, shortHash(result.Hash))
	return nil
}

// CommitCommandBuilder assembles the commit command.
type CommitCommandBuilder struct {
	Dependencies
}

// Build constructs the commit command.
func (builder *CommitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commitUseConstant,
		Short:         commitShortDescription,
		Long:          commitLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	flags.BindForceFlag(command)
	command.Flags().StringP(commitMessageFlagName, commitMessageFlagShorthand, "", commitMessageFlagUsage)
	return command, nil
}

func (builder *CommitCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	message, _ := command.Flags().GetString(commitMessageFlagName)
	result, commitError := runtime.service.Commit(command.Context(), runtime.host, trunk.CommitOptions{
		Store:   runtime.store,
		Message: message,
		Force:   runtime.force,
	})
	if commitError != nil {
		return reportOutcome(runtime.output, runtime.store, commitError)
	}

	if result.Recovered {
		fmt.Fprintf(runtime.output, commitRecoveredTemplate, result.Store, shortHash(result.Hash))
		return nil
	}
	fmt.Fprintf(runtime.output, commitRecordedTemplate, result.ChangeCount, result.Store, shortHash(result.Hash))
	return nil
}

// CheckoutCommandBuilder assembles the checkout command.
type CheckoutCommandBuilder struct {
	Dependencies
}

// Build constructs the checkout command.
func (builder *CheckoutCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           checkoutUseConstant,
		Short:         checkoutShortDescription,
		Long:          checkoutLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	flags.BindForceFlag(command)
	return command, nil
}

func (builder *CheckoutCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	result, checkoutError := runtime.service.Checkout(command.Context(), runtime.host, trunk.CheckoutOptions{
		Store:  runtime.store,
		Remote: runtime.remote,
		Force:  runtime.force,
	})
	if checkoutError != nil {
		return reportOutcome(runtime.output, runtime.store, checkoutError)
	}

	fmt.Fprintf(runtime.output, checkoutMaterializedTemplate, result.Store, result.Source, shortHash(result.Hash))
	return nil
}

// SteganoCommandBuilder assembles the stegano command.
type SteganoCommandBuilder struct {
	Dependencies
}

// Build constructs the stegano command.
func (builder *SteganoCommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           steganoUseConstant,
		Short:         steganoShortDescription,
		Long:          steganoLongDescription,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}, nil
}

func (builder *SteganoCommandBuilder) run(command *cobra.Command, _ []string) error {
	runtime, prepareError := builder.prepare(command)
	if prepareError != nil {
		return prepareError
	}

	result, concealError := runtime.service.Conceal(command.Context(), runtime.host, trunk.ConcealOptions{Store: runtime.store})
	if concealError != nil {
		return concealError
	}

	if result.Removed {
		fmt.Fprintf(runtime.output, steganoConcealedTemplate, result.Store)
	} else {
		fmt.Fprintf(runtime.output, steganoAbsentTemplate, result.Store)
	}
	return nil
}
