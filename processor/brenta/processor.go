// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package brenta implements the transaction processor of the Corsa chain. It
// validates transactions, charges gas fees, handles nonces and contract
// creation, and drives a contract interpreter through the recursive call
// protocol.
package brenta

import (
	"fmt"

	"github.com/corsa-chain/corsa"
	"github.com/holiman/uint256"
)

func init() {
	err := corsa.RegisterProcessorFactory("brenta", newProcessor)
	if err != nil {
		panic(fmt.Sprintf("failed to register processor: %v", err))
	}
}

const (
	// txGas is the intrinsic cost of any transaction.
	txGas corsa.Gas = 21000
	// txGasContractCreation is the intrinsic cost of a transaction creating
	// a contract.
	txGasContractCreation corsa.Gas = 53000
	// Intrinsic cost per byte of transaction input data.
	txDataNonZeroGas corsa.Gas = 16
	txDataZeroGas    corsa.Gas = 4
)

type processor struct {
	interpreter corsa.Interpreter
}

func newProcessor(interpreter corsa.Interpreter) corsa.Processor {
	return &processor{interpreter: interpreter}
}

func (p *processor) Run(
	block corsa.BlockParameters,
	transaction corsa.Transaction,
	state corsa.StateAccess,
) (corsa.Receipt, error) {
	if err := validate(block, transaction, state); err != nil {
		// Rejected transactions have no effect and charge nothing; the
		// rejection is an outcome, not a processor defect.
		return corsa.Receipt{}, nil
	}

	gasPrice := transaction.GasPrice.ToUint256()
	upfront := new(uint256.Int).Mul(gasPrice, uint256.NewInt(uint64(transaction.GasLimit)))
	balance := state.GetBalance(transaction.Sender).ToUint256()
	state.SetBalance(transaction.Sender, corsa.ValueFromUint256(new(uint256.Int).Sub(balance, upfront)))

	context := &runContext{
		StateAccess: state,
		interpreter: p.interpreter,
		block:       block,
		transaction: corsa.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
	}

	gas := transaction.GasLimit - intrinsicGas(transaction)

	var result corsa.CallResult
	var err error
	if transaction.Recipient == nil {
		result, err = context.Call(corsa.Create, corsa.CallParameters{
			Sender: transaction.Sender,
			Value:  transaction.Value,
			Input:  transaction.Input,
			Gas:    gas,
		})
	} else {
		state.SetNonce(transaction.Sender, transaction.Nonce+1)
		result, err = context.Call(corsa.Call, corsa.CallParameters{
			Sender:    transaction.Sender,
			Recipient: *transaction.Recipient,
			Value:     transaction.Value,
			Input:     transaction.Input,
			Gas:       gas,
		})
	}
	if err != nil {
		return corsa.Receipt{}, err
	}

	// Refunds are paid out of the gas actually used, capped at half of it.
	gasUsed := transaction.GasLimit - result.GasLeft
	refund := result.GasRefund
	if refund > gasUsed/2 {
		refund = gasUsed / 2
	}
	gasUsed -= refund

	gasLeft := transaction.GasLimit - gasUsed
	reimbursement := corsa.ValueFromUint256(
		new(uint256.Int).Mul(gasPrice, uint256.NewInt(uint64(gasLeft))))
	state.SetBalance(transaction.Sender,
		corsa.Add(state.GetBalance(transaction.Sender), reimbursement))

	fee := corsa.ValueFromUint256(
		new(uint256.Int).Mul(gasPrice, uint256.NewInt(uint64(gasUsed))))
	state.SetBalance(block.Coinbase, corsa.Add(state.GetBalance(block.Coinbase), fee))

	receipt := corsa.Receipt{
		Success: result.Success,
		Output:  result.Output,
		GasUsed: gasUsed,
		Logs:    state.GetLogs(),
	}
	if transaction.Recipient == nil && result.Success {
		created := result.CreatedAddress
		receipt.ContractAddress = &created
	}
	return receipt, nil
}

// validate rejects transactions that must not enter execution at all: wrong
// nonce, an intrinsic cost beyond the gas limit, a gas limit beyond the
// block, or a sender that cannot pay for gas and value.
func validate(
	block corsa.BlockParameters,
	transaction corsa.Transaction,
	state corsa.StateAccess,
) error {
	if transaction.GasLimit > block.GasLimit {
		return fmt.Errorf("gas limit %d exceeds block gas limit %d", transaction.GasLimit, block.GasLimit)
	}
	if intrinsic := intrinsicGas(transaction); transaction.GasLimit < intrinsic {
		return fmt.Errorf("gas limit %d below intrinsic gas %d", transaction.GasLimit, intrinsic)
	}
	if nonce := state.GetNonce(transaction.Sender); nonce != transaction.Nonce {
		return fmt.Errorf("nonce mismatch, got %d, want %d", transaction.Nonce, nonce)
	}

	gasPrice := transaction.GasPrice.ToUint256()
	cost := new(uint256.Int).Mul(gasPrice, uint256.NewInt(uint64(transaction.GasLimit)))
	cost, overflow := new(uint256.Int).AddOverflow(cost, transaction.Value.ToUint256())
	if overflow {
		return fmt.Errorf("transaction cost overflow")
	}
	if state.GetBalance(transaction.Sender).ToUint256().Lt(cost) {
		return fmt.Errorf("insufficient balance for gas and value")
	}
	return nil
}

// intrinsicGas is the gas charged for a transaction before any code runs. It
// covers the transaction itself and its input data, with zero bytes priced
// cheaper than non-zero ones.
func intrinsicGas(transaction corsa.Transaction) corsa.Gas {
	gas := txGas
	if transaction.Recipient == nil {
		gas = txGasContractCreation
	}
	for _, b := range transaction.Input {
		if b == 0 {
			gas += txDataZeroGas
		} else {
			gas += txDataNonZeroGas
		}
	}
	return gas
}
