package btcwallet

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/currency"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/store"
)

// Virtual-size constants for a P2WPKH spend. Fee for n inputs and two
// outputs is round(148n + 2*34 + 10) * byteFee.
const (
	inputVBytes    = 148
	outputVBytes   = 34
	overheadVBytes = 10

	// Heuristic cost of one input / two outputs at 1 unit per vbyte,
	// used before any input has been selected.
	initialFee = 224
)

type selection struct {
	inputs []*store.UTXO
	// all in smallest units
	amount int64
	fee    int64
	change int64
	total  int64
}

// selectCoins accumulates cached ACTIVE outputs for the sending address
// until they cover amount plus the fee, re-deriving the fee from the input
// count on every step. The cache is consumed in storage order, newest
// first. Shared verbatim by EstimateFee and SendCoin so the two never
// disagree.
func (s *Service) selectCoins(from string, amount decimal.Decimal) (*selection, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", gateway.ErrInvalidInput)
	}
	amt := currency.ToSmallestUnit(amount, s.coin.Decimal).Int64()
	fee := int64(initialFee)
	required := amt + fee

	utxos, err := s.utxos.ActiveUTXOs(s.network.Slug, from)
	if err != nil {
		return nil, err
	}

	var inputs []*store.UTXO
	var balance int64
	for balance < required {
		if len(utxos) == 0 {
			requiredD := currency.FromSmallestUnitInt(required, s.coin.Decimal)
			balanceD := currency.FromSmallestUnitInt(balance, s.coin.Decimal)
			return nil, &gateway.InsufficientFundsError{
				AssetCode: s.coin.AssetCode(),
				Required:  requiredD,
				Available: balanceD,
				Shortage:  currency.Sub(requiredD, balanceD),
			}
		}
		utxo := utxos[len(utxos)-1]
		utxos = utxos[:len(utxos)-1]
		inputs = append(inputs, utxo)
		balance += utxo.Amount

		fee = int64(math.Round(inputVBytes*float64(len(inputs))+2*outputVBytes+overheadVBytes)) * int64(s.byteFee)
		required = amt + fee
	}

	return &selection{
		inputs: inputs,
		amount: amt,
		fee:    fee,
		change: balance - amt - fee,
		total:  balance,
	}, nil
}
