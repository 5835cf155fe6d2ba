package flags

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// StoreFlagName selects the trunk store a command operates on.
	StoreFlagName = "store"
	// StoreFlagShorthand is the one-letter form of StoreFlagName.
	StoreFlagShorthand = "s"
	// StoreFlagUsage describes StoreFlagName.
	StoreFlagUsage = "Trunk store name"
	// RemoteFlagName selects the remote for publish and status queries.
	RemoteFlagName = "remote"
	// RemoteFlagShorthand is the one-letter form of RemoteFlagName.
	RemoteFlagShorthand = "r"
	// RemoteFlagUsage describes RemoteFlagName.
	RemoteFlagUsage = "Remote name to target"
	// ForceFlagName skips confirmation prompts.
	ForceFlagName = "force"
	// ForceFlagShorthand is the one-letter form of ForceFlagName.
	ForceFlagShorthand = "f"
	// ForceFlagUsage describes ForceFlagName.
	ForceFlagUsage = "Skip confirmation prompts"
)

// StoreFlagValues holds the parsed persistent store and remote flags.
type StoreFlagValues struct {
	Store  string
	Remote string
}

// BindStoreFlags attaches --store/-s and --remote/-r as persistent flags of command.
func BindStoreFlags(command *cobra.Command, defaults StoreFlagValues) *StoreFlagValues {
	values := defaults
	if command == nil {
		return &values
	}

	persistentFlagSet := command.PersistentFlags()
	if persistentFlagSet.Lookup(StoreFlagName) == nil {
		persistentFlagSet.StringVarP(&values.Store, StoreFlagName, StoreFlagShorthand, defaults.Store, StoreFlagUsage)
	}
	if persistentFlagSet.Lookup(RemoteFlagName) == nil {
		persistentFlagSet.StringVarP(&values.Remote, RemoteFlagName, RemoteFlagShorthand, defaults.Remote, RemoteFlagUsage)
	}
	return &values
}

// BindForceFlag attaches --force/-f to command's local flags.
func BindForceFlag(command *cobra.Command) {
	if command == nil {
		return
	}
	if command.Flags().Lookup(ForceFlagName) == nil {
		command.Flags().BoolP(ForceFlagName, ForceFlagShorthand, false, ForceFlagUsage)
	}
}

// ResolveString returns the flag value when the user set it, and fallback otherwise.
func ResolveString(command *cobra.Command, flagName string, fallback string) string {
	flag := lookupFlag(command, flagName)
	if flag == nil || !flag.Changed {
		return fallback
	}
	return strings.TrimSpace(flag.Value.String())
}

// ResolveBool returns the flag value when the user set it, and fallback otherwise.
func ResolveBool(command *cobra.Command, flagName string, fallback bool) bool {
	flag := lookupFlag(command, flagName)
	if flag == nil || !flag.Changed {
		return fallback
	}
	return flag.Value.String() == "true"
}

func lookupFlag(command *cobra.Command, flagName string) *pflag.Flag {
	if command == nil {
		return nil
	}
	for _, flagSet := range []*pflag.FlagSet{command.Flags(), command.InheritedFlags(), command.PersistentFlags()} {
		if flag := flagSet.Lookup(flagName); flag != nil {
			return flag
		}
	}
	return nil
}
