// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package brenta

import (
	"github.com/corsa-chain/corsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// maxCallDepth is the maximum nesting depth of calls and creations.
	// Deeper calls fail without executing, returning their gas.
	maxCallDepth = 1024

	// maxCodeSize is the limit on deployed contract code.
	maxCodeSize = 24576

	// createDataGas is charged per byte of deployed code when a creation
	// completes.
	createDataGas corsa.Gas = 200
)

// runContext implements the call protocol between the processor and the
// interpreter: it executes nested calls and creations on behalf of call
// instructions, maintaining the depth and static-context bookkeeping that
// spans frames. One instance lives per transaction.
type runContext struct {
	corsa.StateAccess
	interpreter corsa.Interpreter
	block       corsa.BlockParameters
	transaction corsa.TransactionParameters
	depth       int
	static      bool
}

// Call runs one nested call or creation to completion and reports its
// outcome. Failures of the callee are results, not errors: the frame's state
// changes are rolled back to the snapshot taken at entry and the caller
// receives Success == false together with whatever gas survived.
func (c *runContext) Call(kind corsa.CallKind, params corsa.CallParameters) (corsa.CallResult, error) {
	if c.depth >= maxCallDepth {
		return corsa.CallResult{GasLeft: params.Gas}, nil
	}
	if kind == corsa.Create || kind == corsa.Create2 {
		return c.runCreate(kind, params)
	}
	return c.runCall(kind, params)
}

func (c *runContext) runCall(kind corsa.CallKind, params corsa.CallParameters) (corsa.CallResult, error) {
	// A CALLCODE moves value from the caller to itself, so it needs the
	// balance without performing an actual transfer.
	checksBalance := (kind == corsa.Call || kind == corsa.CallCode) && !params.Value.IsZero()
	if checksBalance && c.GetBalance(params.Sender).Cmp(params.Value) < 0 {
		// Insufficient balance fails the call before anything ran, so
		// the full forwarded gas flows back to the caller.
		return corsa.CallResult{GasLeft: params.Gas}, nil
	}
	transfersValue := kind == corsa.Call && !params.Value.IsZero()

	codeAddress := params.Recipient
	if kind == corsa.DelegateCall || kind == corsa.CallCode {
		codeAddress = params.CodeAddress
	}
	code := c.GetCode(codeAddress)
	codeHash := c.GetCodeHash(codeAddress)

	snapshot := c.CreateSnapshot()
	if transfersValue {
		transfer(c.StateAccess, params.Sender, params.Recipient, params.Value)
	}

	result, err := c.runInterpreter(kind, params, code, &codeHash, params.Recipient)
	if err != nil {
		return corsa.CallResult{}, err
	}
	if !result.Success {
		c.RestoreSnapshot(snapshot)
	}
	return corsa.CallResult{
		Output:    result.Output,
		GasLeft:   result.GasLeft,
		GasRefund: result.GasRefund,
		Success:   result.Success,
	}, nil
}

func (c *runContext) runCreate(kind corsa.CallKind, params corsa.CallParameters) (corsa.CallResult, error) {
	if !params.Value.IsZero() && c.GetBalance(params.Sender).Cmp(params.Value) < 0 {
		return corsa.CallResult{GasLeft: params.Gas}, nil
	}

	// The creator's nonce is spent no matter how the creation ends; it is
	// incremented before the snapshot so a failed creation cannot be
	// replayed under the same nonce.
	nonce := c.GetNonce(params.Sender)
	c.SetNonce(params.Sender, nonce+1)

	var created corsa.Address
	if kind == corsa.Create {
		created = corsa.Address(crypto.CreateAddress(common.Address(params.Sender), nonce))
	} else {
		created = corsa.Address(crypto.CreateAddress2(
			common.Address(params.Sender), common.Hash(params.Salt), crypto.Keccak256(params.Input)))
	}

	// An account with code or a used nonce at the target address makes the
	// creation fail hard, consuming all forwarded gas.
	if c.GetNonce(created) != 0 || len(c.GetCode(created)) != 0 {
		return corsa.CallResult{}, nil
	}

	snapshot := c.CreateSnapshot()
	c.SetNonce(created, 1)
	transfer(c.StateAccess, params.Sender, created, params.Value)

	result, err := c.runInterpreter(kind, corsa.CallParameters{
		Sender: params.Sender,
		Value:  params.Value,
		Gas:    params.Gas,
	}, corsa.Code(params.Input), nil, created)
	if err != nil {
		return corsa.CallResult{}, err
	}
	if !result.Success {
		c.RestoreSnapshot(snapshot)
		return corsa.CallResult{
			Output:  result.Output,
			GasLeft: result.GasLeft,
		}, nil
	}

	code := result.Output
	depositCost := createDataGas * corsa.Gas(len(code))
	if len(code) > maxCodeSize || result.GasLeft < depositCost {
		c.RestoreSnapshot(snapshot)
		return corsa.CallResult{}, nil
	}
	c.SetCode(created, corsa.Code(code))

	return corsa.CallResult{
		GasLeft:        result.GasLeft - depositCost,
		GasRefund:      result.GasRefund,
		CreatedAddress: created,
		Success:        true,
	}, nil
}

// runInterpreter executes one frame, maintaining the depth counter and the
// static flag across the nested run. A static parent forces all descendants
// static, regardless of their call kind.
func (c *runContext) runInterpreter(
	kind corsa.CallKind,
	params corsa.CallParameters,
	code corsa.Code,
	codeHash *corsa.Hash,
	recipient corsa.Address,
) (corsa.Result, error) {
	static := c.static || kind == corsa.StaticCall

	parentStatic := c.static
	c.depth++
	c.static = static
	defer func() {
		c.depth--
		c.static = parentStatic
	}()

	return c.interpreter.Run(corsa.Parameters{
		BlockParameters:       c.block,
		TransactionParameters: c.transaction,
		Context:               c,
		Kind:                  kind,
		Static:                static,
		Depth:                 c.depth,
		Gas:                   params.Gas,
		Recipient:             recipient,
		Sender:                params.Sender,
		Input:                 params.Input,
		Value:                 params.Value,
		CodeHash:              codeHash,
		Code:                  code,
	})
}

func transfer(state corsa.StateAccess, from, to corsa.Address, value corsa.Value) {
	if value.IsZero() || from == to {
		return
	}
	state.SetBalance(from, corsa.Sub(state.GetBalance(from), value))
	state.SetBalance(to, corsa.Add(state.GetBalance(to), value))
}
