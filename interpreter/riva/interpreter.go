// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package riva implements the reference byte code interpreter of the Corsa
// chain. It executes one computation at a time, fully deterministically,
// driven by a per-revision dispatch table covering all 256 instruction bytes.
package riva

import (
	"fmt"

	"github.com/corsa-chain/corsa"
)

func init() {
	err := corsa.RegisterInterpreterFactory("riva", func(revision corsa.Revision) (corsa.Interpreter, error) {
		return newInterpreter(revision)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register interpreter: %v", err))
	}
}

type interpreter struct {
	revision corsa.Revision
	table    *opcodeTable
}

func newInterpreter(revision corsa.Revision) (*interpreter, error) {
	table, err := newOpcodeTable(revision)
	if err != nil {
		return nil, err
	}
	return &interpreter{revision: revision, table: table}, nil
}

// status is the life cycle state of a computation. A computation starts
// running and ends in exactly one of the terminal states below.
type status byte

const (
	statusRunning        status = iota
	statusStopped               // STOP or the end of the code was reached
	statusReturned              // RETURN provided result data
	statusReverted              // REVERT undid the frame and provided result data
	statusSelfDestructed        // SELFDESTRUCT scheduled the contract for removal
	statusFailed                // an error consumed all gas of the frame
)

// context is the execution state of a single computation. One instance lives
// for the duration of one Run call and is never shared.
type context struct {
	params  corsa.Parameters
	context corsa.RunContext
	table   *opcodeTable

	gas    gasMeter
	stack  *stack
	memory *Memory
	code   codeStream
	pc     uint64
	status status

	// output holds the result data produced by RETURN or REVERT of this
	// frame, while returnData holds the output of the most recently
	// completed child call. The two are deliberately distinct so that
	// RETURNDATACOPY after a nested call is unaffected by this frame's own
	// result buffer.
	output     []byte
	returnData []byte

	// err records the cause of a failed computation. It is diagnostic
	// only; callers observe failures through the result, not the error.
	err error
}

func (i *interpreter) Run(params corsa.Parameters) (corsa.Result, error) {
	if params.Revision != i.revision {
		return corsa.Result{}, fmt.Errorf("%w: interpreter configured for %v, requested %v",
			errInvalidRevision, i.revision, params.Revision)
	}
	if len(params.Code) == 0 {
		return corsa.Result{Success: true, GasLeft: params.Gas}, nil
	}

	ctxt := context{
		params:  params,
		context: params.Context,
		table:   i.table,
		gas:     newGasMeter(params.Gas),
		stack:   NewStack(),
		memory:  NewMemory(),
		code:    newCodeStream(params.Code, params.CodeHash),
	}
	defer ReturnStack(ctxt.stack)

	run(&ctxt)
	return generateResult(&ctxt), nil
}

// run drives the dispatch loop until the computation reaches a terminal
// state. Stack bounds and the static gas price are validated before an
// instruction executes, so instruction implementations only handle their
// dynamic costs.
func run(c *context) {
	for c.status == statusRunning {
		op := c.code.get(c.pc)
		operation := &c.table[op]
		if c.stack.len() < operation.minStack {
			c.signalError(errStackUnderflow)
			return
		}
		if c.stack.len() > operation.maxStack {
			c.signalError(errStackOverflow)
			return
		}
		if err := c.gas.consume(operation.staticGas); err != nil {
			c.signalError(err)
			return
		}
		if err := operation.execute(c); err != nil {
			c.signalError(err)
			return
		}
		c.pc++
	}
}

// signalError moves the computation into the failed state. All gas of the
// frame is consumed and any accumulated refunds are forfeited.
func (c *context) signalError(err error) {
	c.status = statusFailed
	c.err = err
}

// generateResult converts the terminal state of a computation into the
// result reported to the caller. Errors during execution are not propagated
// as Go errors; they surface as an unsuccessful result with all gas consumed.
func generateResult(c *context) corsa.Result {
	switch c.status {
	case statusStopped, statusSelfDestructed:
		return corsa.Result{
			Success:   true,
			GasLeft:   c.gas.left(),
			GasRefund: c.gas.refunded,
		}
	case statusReturned:
		return corsa.Result{
			Success:   true,
			Output:    c.output,
			GasLeft:   c.gas.left(),
			GasRefund: c.gas.refunded,
		}
	case statusReverted:
		// The frame's state changes are undone by the caller; the gas
		// that was not consumed is still returned, refunds are not.
		return corsa.Result{
			Success: false,
			Output:  c.output,
			GasLeft: c.gas.left(),
		}
	default:
		return corsa.Result{Success: false}
	}
}
