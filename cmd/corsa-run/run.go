// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"time"

	"github.com/corsa-chain/corsa"
	"github.com/corsa-chain/corsa/chain"
	"github.com/corsa-chain/corsa/examples"
	_ "github.com/corsa-chain/corsa/interpreter/riva"
	_ "github.com/corsa-chain/corsa/processor/brenta"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run example contracts through the execution engine",
	ArgsUsage: "[<example>]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "the interpreter implementation to use",
			Value: "riva",
		},
		&cli.StringFlag{
			Name:  "processor",
			Usage: "the processor implementation to use",
			Value: "brenta",
		},
		&cli.StringFlag{
			Name:  "revision",
			Usage: "the protocol revision to run under",
			Value: corsa.NewestRevision.String(),
		},
		&cli.IntFlag{
			Name:  "transactions",
			Usage: "number of transactions to apply",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "block-size",
			Usage: "number of transactions per block",
			Value: 100,
		},
	},
}

func doRun(context *cli.Context) error {
	var revision corsa.Revision
	if err := revision.UnmarshalJSON([]byte(fmt.Sprintf("%q", context.String("revision")))); err != nil {
		return err
	}

	example := examples.GetCounterExample()
	if name := context.Args().First(); name != "" {
		found := false
		for _, candidate := range examples.GetAllExamples() {
			if candidate.Name == name {
				example, found = candidate, true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown example: %s", name)
		}
	}

	vm, err := chain.NewVM(chain.Config{
		Interpreter: context.String("interpreter"),
		Processor:   context.String("processor"),
		Revision:    revision,
		Coinbase:    corsa.Address{0xc0},
	})
	if err != nil {
		return err
	}

	sender := corsa.Address{0x01}
	vm.SetBalance(sender, corsa.NewValue(1, 0, 0, 0)) // effectively unlimited

	receipt, err := vm.ApplyTransaction(corsa.Transaction{
		Sender:   sender,
		Input:    example.InitCode(),
		GasLimit: 1_000_000,
	})
	if err != nil {
		return err
	}
	if !receipt.Success || receipt.ContractAddress == nil {
		return fmt.Errorf("failed to deploy the %s example", example.Name)
	}
	contract := *receipt.ContractAddress
	fmt.Printf("Deployed %s at %v\n", example.Name, contract)

	transactions := context.Int("transactions")
	blockSize := context.Int("block-size")
	if blockSize < 1 {
		blockSize = 1
	}

	var gasUsed corsa.Gas
	start := time.Now()
	for i := 0; i < transactions; i++ {
		receipt, err := vm.ApplyTransaction(corsa.Transaction{
			Sender:    sender,
			Recipient: &contract,
			Nonce:     uint64(i) + 1,
			GasLimit:  100_000,
		})
		if err != nil {
			return err
		}
		if !receipt.Success {
			return fmt.Errorf("transaction %d failed: %x", i, receipt.Output)
		}
		gasUsed += receipt.GasUsed
		if (i+1)%blockSize == 0 {
			if _, err := vm.MineBlock(); err != nil {
				return err
			}
		}
	}
	if _, err := vm.MineBlock(); err != nil {
		return err
	}
	duration := time.Since(start)

	rate := float64(transactions) / duration.Seconds()
	gasRate := float64(gasUsed) / duration.Seconds()
	fmt.Printf("Applied %d transactions in %v\n", transactions, duration.Round(time.Millisecond))
	fmt.Printf("Transaction rate: %s tx/s\n", unitconv.FormatPrefix(rate, unitconv.SI, 0))
	fmt.Printf("Gas rate: %s gas/s\n", unitconv.FormatPrefix(gasRate, unitconv.SI, 0))
	return nil
}
