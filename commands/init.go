package commands

import (
	"fmt"

	"github.com/shykerbogdan/coin-gateway/config"

	"github.com/spf13/cobra"
)

func initCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [project]",
		Short: "Initialize a new gateway config (default filename is ./[project].json)",
		Long: `Initialize a new config for a gateway deployment.

project: The name of your deployment, e.g. 'treasury-staging'

The config is seeded with the stock networks (Bitcoin testnet, Ethereum
Goerli, Polygon Mumbai) and coin bindings. Edit the RPC URLs before use.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			filename, _ := c.Flags().GetString("config")
			if filename == "" {
				filename = fmt.Sprintf("%s.json", args[0])
			}
			return initProjectConfig(filename, args[0])
		},
	}

	return cmd
}

func initProjectConfig(filename string, project string) error {
	cfg := config.New(project)

	err := cfg.Save(filename)
	if err != nil {
		return err
	}

	fmt.Printf("New gateway config created: %s \n", cfg.CfgFile())
	return nil
}
