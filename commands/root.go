package commands

import (
	"github.com/shykerbogdan/coin-gateway/config"
	"github.com/shykerbogdan/coin-gateway/configdir"

	"github.com/moby/term"
	"github.com/spf13/cobra"
)

const rootCmdName = "coin-gateway"

var appDirs = configdir.New(rootCmdName)
var appConfig *config.AppConfig = &config.AppConfig{}

func NewRootCommand() *cobra.Command {

	cmd := &cobra.Command{
		Use:   rootCmdName,
		Short: "Multi-ledger coin gateway",
		Long:  `Send, receive and estimate fees for coins across UTXO and account-based ledgers.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// We run this method for its side-effects. On windows, this will enable the windows terminal
			// to understand ANSI escape codes.
			_, _, _ = term.StdStreams()

			filename, _ := cmd.Flags().GetString("config")
			if config.FileExists(filename) {
				appConfig = config.Load(filename)
			}
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "coin-gateway.json", "config file which **contains secrets**")
	cmd.PersistentFlags().StringP("log", "l", "coin-gateway.log", "logfile")

	cmd.AddCommand(initCommand())
	cmd.AddCommand(versionCommand())
	cmd.AddCommand(walletCommand())
	cmd.AddCommand(debugCommand())

	return cmd
}

func Execute() {
	cobra.CheckErr(NewRootCommand().Execute())
}
