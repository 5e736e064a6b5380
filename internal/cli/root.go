// Package cli implements the ledgerd command line.
package cli

import (
	"github.com/spf13/cobra"
)

var confFile string

// NewRootCmd builds the ledgerd command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerd",
		Short: "Distributed ledger core daemon",
		Long: `ledgerd maintains the authenticated ledger chain: building child
ledgers, freezing them, and persisting validated ledgers to the node store
and the relational index.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&confFile, "conf", "", "configuration file")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newStandaloneCmd())
	return root
}
