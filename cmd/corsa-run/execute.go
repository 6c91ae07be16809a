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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/corsa-chain/corsa"
	"github.com/corsa-chain/corsa/chain"
	"github.com/urfave/cli/v2"
)

var ExecuteCmd = cli.Command{
	Action:    doExecute,
	Name:      "execute",
	Usage:     "Execute raw hex byte code against a fresh state",
	ArgsUsage: "<hex-code>",
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
		&cli.StringFlag{
			Name:  "input",
			Usage: "call data passed to the code, in hex",
		},
		&cli.Uint64Flag{
			Name:  "gas",
			Usage: "gas limit of the transaction",
			Value: 1_000_000,
		},
		&cli.Uint64Flag{
			Name:  "value",
			Usage: "amount of chain currency sent along with the call",
		},
	},
}

func doExecute(context *cli.Context) error {
	code, err := decodeHex(context.Args().First())
	if err != nil {
		return fmt.Errorf("invalid code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("no code given")
	}
	input, err := decodeHex(context.String("input"))
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	var revision corsa.Revision
	if err := revision.UnmarshalJSON([]byte(fmt.Sprintf("%q", context.String("revision")))); err != nil {
		return err
	}

	vm, err := chain.NewVM(chain.Config{
		Interpreter: context.String("interpreter"),
		Processor:   context.String("processor"),
		Revision:    revision,
	})
	if err != nil {
		return err
	}

	sender := corsa.Address{0x01}
	contract := corsa.Address{0x02}
	vm.SetBalance(sender, corsa.NewValue(1, 0, 0, 0))
	vm.SetCode(contract, code)

	receipt, err := vm.ApplyTransaction(corsa.Transaction{
		Sender:    sender,
		Recipient: &contract,
		Input:     input,
		Value:     corsa.NewValue(context.Uint64("value")),
		GasLimit:  corsa.Gas(context.Uint64("gas")),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Success:  %t\n", receipt.Success)
	fmt.Printf("Output:   0x%x\n", receipt.Output)
	fmt.Printf("Gas used: %d\n", receipt.GasUsed)
	for i, log := range receipt.Logs {
		fmt.Printf("Log %d:    %v %v 0x%x\n", i, log.Address, log.Topics, log.Data)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}
