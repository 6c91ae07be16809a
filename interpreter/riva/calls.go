// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package riva

import (
	"bytes"
	"math"

	"github.com/corsa-chain/corsa"
)

// Instructions ending a frame or starting a nested one. The recursive part
// of calls and creations is delegated to the RunContext; the instructions
// here handle the gas accounting and the memory traffic around it.

func opReturn(c *context) error {
	offset, size, err := popMemoryRange(c)
	if err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset, size, &c.gas)
	if err != nil {
		return err
	}
	c.output = bytes.Clone(data)
	c.status = statusReturned
	return nil
}

func opRevert(c *context) error {
	offset, size, err := popMemoryRange(c)
	if err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset, size, &c.gas)
	if err != nil {
		return err
	}
	c.output = bytes.Clone(data)
	c.status = statusReverted
	return nil
}

// makeLog builds the implementation of LOG0 through LOG4. On top of the
// static price, a log costs 375 gas per topic and 8 gas per payload byte.
func makeLog(topicCount int) executionFunc {
	return func(c *context) error {
		if c.params.Static {
			return errStaticContextViolation
		}
		offset, size, err := popMemoryRange(c)
		if err != nil {
			return err
		}
		topics := make([]corsa.Hash, topicCount)
		for i := range topics {
			topics[i] = corsa.Hash(c.stack.pop().Bytes32())
		}
		cost := gasLogTopic*corsa.Gas(topicCount) + gasLogData*corsa.Gas(size)
		if err := c.gas.consume(cost); err != nil {
			return err
		}
		data, err := c.memory.getSlice(offset, size, &c.gas)
		if err != nil {
			return err
		}
		c.context.EmitLog(corsa.Log{
			Address: c.params.Recipient,
			Topics:  topics,
			Data:    bytes.Clone(data),
		})
		return nil
	}
}

func opSelfdestruct(c *context) error {
	if c.params.Static {
		return errStaticContextViolation
	}
	beneficiary := corsa.Address(c.stack.pop().Bytes20())
	if c.context.SelfDestruct(c.params.Recipient, beneficiary) {
		c.gas.refund(gasSelfdestructRefund)
	}
	c.status = statusSelfDestructed
	return nil
}

// ------------------------------- calls ----------------------------------

func opCall(c *context) error {
	return genericCall(c, corsa.Call)
}

func opCallCode(c *context) error {
	return genericCall(c, corsa.CallCode)
}

func opDelegateCall(c *context) error {
	return genericCall(c, corsa.DelegateCall)
}

func opStaticCall(c *context) error {
	return genericCall(c, corsa.StaticCall)
}

// genericCall implements the four call variants. The caller pays the value
// transfer and new account surcharges, expands the argument and result
// memory ranges, and forwards at most 63/64 of its remaining gas. The
// outcome of the nested call is reported as a boolean on the stack; it is
// never an error of this frame.
func genericCall(c *context, kind corsa.CallKind) error {
	stack := c.stack
	gasValue := stack.pop()
	address := corsa.Address(stack.pop().Bytes20())
	value := corsa.Value{}
	if kind == corsa.Call || kind == corsa.CallCode {
		value = corsa.Value(stack.pop().Bytes32())
	}
	argsOffset, argsSize, err := popMemoryRange(c)
	if err != nil {
		return err
	}
	retOffset, retSize, err := popMemoryRange(c)
	if err != nil {
		return err
	}

	hasValue := value != corsa.Value{}
	if hasValue && c.params.Static && kind == corsa.Call {
		return errStaticContextViolation
	}

	// The surcharges are paid before the forwarded gas is computed, so a
	// value-bearing call forwards 63/64 of what remains after the 9000.
	var surcharge corsa.Gas
	if hasValue {
		surcharge += gasCallValue
	}
	if hasValue && kind == corsa.Call && !c.context.AccountExists(address) {
		surcharge += gasCallNewAccount
	}
	if err := c.gas.consume(surcharge); err != nil {
		return err
	}

	input, err := c.memory.getSlice(argsOffset, argsSize, &c.gas)
	if err != nil {
		return err
	}
	output, err := c.memory.getSlice(retOffset, retSize, &c.gas)
	if err != nil {
		return err
	}

	requested := corsa.Gas(math.MaxInt64)
	if gasValue.IsUint64() && gasValue.Uint64() < math.MaxInt64 {
		requested = corsa.Gas(gasValue.Uint64())
	}
	forwarded := callGas(c.gas.left(), requested)
	if err := c.gas.consume(forwarded); err != nil {
		return err
	}
	if hasValue {
		// The callee can always rely on the stipend, even if the caller
		// ran dry. Unused parts flow back below like any other gas.
		forwarded += gasCallStipend
	}

	sender := c.params.Recipient
	recipient := address
	callValue := value
	if kind == corsa.DelegateCall {
		// A delegate call runs the foreign code in the caller's own
		// frame: sender and value are inherited from this frame.
		sender = c.params.Sender
		recipient = c.params.Recipient
		callValue = c.params.Value
	}
	if kind == corsa.CallCode {
		recipient = c.params.Recipient
	}

	result, err := c.context.Call(kind, corsa.CallParameters{
		Sender:      sender,
		Recipient:   recipient,
		Value:       callValue,
		Input:       bytes.Clone(input),
		Gas:         forwarded,
		CodeAddress: address,
	})
	if err != nil {
		return err
	}

	c.gas.returnGas(result.GasLeft)
	c.gas.refund(result.GasRefund)
	c.returnData = result.Output
	copy(output, result.Output)

	success := stack.pushUndefined()
	if result.Success {
		success.SetOne()
	} else {
		success.Clear()
	}
	return nil
}

// ----------------------------- creations --------------------------------

func opCreate(c *context) error {
	return genericCreate(c, corsa.Create)
}

func opCreate2(c *context) error {
	return genericCreate(c, corsa.Create2)
}

// genericCreate starts a contract creation from init code held in memory.
// Nonce handling, address derivation, and the code deposit charge are the
// processor's business; this frame pays for the init code transfer and
// forwards 63/64 of its remaining gas.
func genericCreate(c *context, kind corsa.CallKind) error {
	if c.params.Static {
		return errStaticContextViolation
	}
	stack := c.stack
	value := corsa.Value(stack.pop().Bytes32())
	offset, size, err := popMemoryRange(c)
	if err != nil {
		return err
	}
	salt := corsa.Hash{}
	if kind == corsa.Create2 {
		salt = corsa.Hash(stack.pop().Bytes32())
		// CREATE2 hashes the init code for the address derivation,
		// priced like SHA3 at 6 gas per word.
		words := corsa.Gas(corsa.SizeInWords(size))
		if err := c.gas.consume(gasKeccakWord * words); err != nil {
			return err
		}
	}

	initCode, err := c.memory.getSlice(offset, size, &c.gas)
	if err != nil {
		return err
	}

	forwarded := callGas(c.gas.left(), math.MaxInt64)
	if err := c.gas.consume(forwarded); err != nil {
		return err
	}

	result, err := c.context.Call(kind, corsa.CallParameters{
		Sender: c.params.Recipient,
		Value:  value,
		Input:  bytes.Clone(initCode),
		Gas:    forwarded,
		Salt:   salt,
	})
	if err != nil {
		return err
	}

	c.gas.returnGas(result.GasLeft)
	c.gas.refund(result.GasRefund)
	if result.Success {
		// A successful creation clears the return data buffer; only a
		// reverting init code hands data back to the creator.
		c.returnData = nil
		c.stack.pushUndefined().SetBytes(result.CreatedAddress[:])
	} else {
		c.returnData = result.Output
		c.stack.pushUndefined().Clear()
	}
	return nil
}
