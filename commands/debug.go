package commands

import (
	"fmt"

	"github.com/shykerbogdan/coin-gateway/utils"
	"github.com/shykerbogdan/coin-gateway/version"

	"github.com/spf13/cobra"
)

func debugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Print debug info including the cached UTXOs and nonce counters.",
		Run: func(c *cobra.Command, args []string) {
			fmt.Println("Build Date:", version.BuildDate)
			fmt.Println("Git Commit:", version.GitCommit)
			fmt.Println("Version:", version.Version)
			fmt.Println("Go Version:", version.GoVersion)
			fmt.Println("OS / Arch:", version.OsArch)

			appConfig.MustExist()

			fmt.Println(appConfig.String())
			for _, name := range appConfig.SortedWalletNames() {
				w := appConfig.FindWallet(name)
				fmt.Printf("  Wallet %s: %s %s on %s \n", w.Name, w.Address, w.AssetCode, w.NetworkSlug)
			}
			fmt.Printf("  UTXO cache:\n%s\n", utils.Dump(appConfig.UTXOs))
			fmt.Printf("  Nonces:\n%s\n", utils.Dump(appConfig.Nonces))
		},
	}

	return cmd
}
