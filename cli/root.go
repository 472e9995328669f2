package cli

import (
	"github.com/spf13/cobra"

	"github.com/rentabot/rentabot/pkg/version"
)

// RootCmd builds the rentabot command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "rentabot",
		Short:   "Rent-A-Bot, your automation resource provider",
		Long:    "Rent-A-Bot brokers exclusive, time-bounded access to a catalog of automation resources.",
		Version: version.Get(),
	}
	root.AddCommand(ServeCmd())
	root.AddCommand(VersionCmd())
	return root
}

// VersionCmd prints the build version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rentabot version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.Get())
		},
	}
}
