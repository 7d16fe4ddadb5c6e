package commands

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/config"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/noncer"
	"github.com/shykerbogdan/coin-gateway/store"
	"github.com/shykerbogdan/coin-gateway/wallet"
)

func walletCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Create wallets, check balances, estimate fees and send coins",
		Long:  ``,
	}

	cmd.AddCommand(walletCreateCommand())
	cmd.AddCommand(walletBalanceCommand())
	cmd.AddCommand(walletEstimateCommand())
	cmd.AddCommand(walletSendCommand())

	return cmd
}

func walletCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name network asset]",
		Short: "Generate a new key pair for a coin and store it in the config",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			appConfig.MustExist()
			setLogOutput(c)

			svc, _, err := openGateway(args[1], args[2])
			if err != nil {
				return err
			}
			nw, err := svc.CreateWallet()
			if err != nil {
				return err
			}
			err = appConfig.AddWallet(&config.StoredWallet{
				Name:        args[0],
				NetworkSlug: args[1],
				AssetCode:   args[2],
				Address:     nw.Address,
				PrivateKey:  nw.PrivateKey,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Wallet %s created: %s \n", args[0], nw.Address)
			return nil
		},
	}
}

func walletBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [name]",
		Short: "Print the on-chain balance of a stored wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			appConfig.MustExist()
			setLogOutput(c)

			w := appConfig.FindWallet(args[0])
			if w == nil {
				return fmt.Errorf("wallet not found: %s", args[0])
			}
			svc, coin, err := openGateway(w.NetworkSlug, w.AssetCode)
			if err != nil {
				return err
			}
			balance, err := svc.GetBalance(context.Background(), w.Address)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s %s \n", w.Address, balance.String(), coin.AssetCode())
			return nil
		},
	}
}

func walletEstimateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [name to amount]",
		Short: "Estimate the fee for sending an amount from a stored wallet",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			appConfig.MustExist()
			setLogOutput(c)

			w := appConfig.FindWallet(args[0])
			if w == nil {
				return fmt.Errorf("wallet not found: %s", args[0])
			}
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("bad amount %q: %w", args[2], err)
			}
			svc, _, err := openGateway(w.NetworkSlug, w.AssetCode)
			if err != nil {
				return err
			}
			est, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
				From:   w.Address,
				To:     args[1],
				Amount: amount,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Fee: %s (coin %d, asset %d) \n", est.Fee.String(), est.FeeCoinID, est.FeeAssetID)
			return nil
		},
	}
}

func walletSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send [name to amount]",
		Short: "Send an amount from a stored wallet",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			appConfig.MustExist()
			setLogOutput(c)

			w := appConfig.FindWallet(args[0])
			if w == nil {
				return fmt.Errorf("wallet not found: %s", args[0])
			}
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("bad amount %q: %w", args[2], err)
			}
			svc, _, err := openGateway(w.NetworkSlug, w.AssetCode)
			if err != nil {
				return err
			}
			tx, err := svc.SendCoin(context.Background(), gateway.CoinSendParam{
				From:       w.Address,
				To:         args[1],
				Amount:     amount,
				PrivateKey: w.PrivateKey,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Broadcast: %s \n", tx.TxHash)
			return nil
		},
	}
}

// openGateway builds a dispatcher over the config-backed store and binds it
// to the (network, asset) pair.
func openGateway(networkSlug, assetCode string) (gateway.CoinService, *chain.Coin, error) {
	mem, err := appConfig.Store()
	if err != nil {
		return nil, nil, err
	}
	network, err := mem.FindNetwork(networkSlug)
	if err != nil {
		return nil, nil, err
	}
	coin, err := mem.FindCoin(networkSlug, assetCode)
	if err != nil {
		return nil, nil, err
	}

	locks := store.NewKeyMutex()
	g := wallet.NewGateway(wallet.Deps{
		UTXOs:  mem,
		Coins:  mem,
		Nonces: noncer.New(mem, locks),
		Locks:  locks,
	})
	if err := g.Init(network, coin); err != nil {
		return nil, nil, err
	}
	return g, coin, nil
}

func setLogOutput(c *cobra.Command) {
	filename, _ := c.Flags().GetString("log")
	// Just use default stderr if no name specified
	if filename == "" {
		return
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		panic(err)
	}
	log.SetOutput(file)
}
