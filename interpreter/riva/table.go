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
	"fmt"

	"github.com/corsa-chain/corsa"
)

type executionFunc func(c *context) error

// operation is one entry of the dispatch table. The stack bounds and the
// static gas price are checked by the dispatch loop before execute is
// invoked; execute itself only charges dynamic costs.
type operation struct {
	execute   executionFunc
	staticGas corsa.Gas
	minStack  int // minimum stack length required
	maxStack  int // maximum stack length allowed, so pushes cannot overflow
}

// opcodeTable maps every possible instruction byte to its operation. The
// table is total: bytes without an assigned instruction dispatch to the
// invalid operation rather than to a nil entry.
type opcodeTable [256]operation

func newOp(execute executionFunc, staticGas corsa.Gas, pops, pushes int) operation {
	return operation{
		execute:   execute,
		staticGas: staticGas,
		minStack:  pops,
		maxStack:  maxStackSize + pops - pushes,
	}
}

// newOpcodeTable builds the dispatch table for the given revision. Later
// revisions extend the instruction set and re-price the state access
// instructions; everything else is shared.
func newOpcodeTable(revision corsa.Revision) (*opcodeTable, error) {
	if revision > corsa.NewestRevision {
		return nil, fmt.Errorf("%w: %v", errInvalidRevision, revision)
	}

	// State access prices for the Genesis revision. Meridian re-priced
	// these to reflect the real cost of cold state lookups.
	var (
		gasBalance      corsa.Gas = 20
		gasSLoad        corsa.Gas = 50
		gasExtCode      corsa.Gas = 20
		gasCalls        corsa.Gas = 40
		gasSelfdestruct corsa.Gas = 0
	)
	if revision >= corsa.R02_Meridian {
		gasBalance = 400
		gasSLoad = 200
		gasExtCode = 700
		gasCalls = 700
		gasSelfdestruct = 5000
	}

	table := opcodeTable{}
	for i := range table {
		table[i] = newOp(opInvalid, 0, 0, 0)
	}

	table[STOP] = newOp(opStop, 0, 0, 0)
	table[ADD] = newOp(opAdd, 3, 2, 1)
	table[MUL] = newOp(opMul, 5, 2, 1)
	table[SUB] = newOp(opSub, 3, 2, 1)
	table[DIV] = newOp(opDiv, 5, 2, 1)
	table[SDIV] = newOp(opSDiv, 5, 2, 1)
	table[MOD] = newOp(opMod, 5, 2, 1)
	table[SMOD] = newOp(opSMod, 5, 2, 1)
	table[ADDMOD] = newOp(opAddMod, 8, 3, 1)
	table[MULMOD] = newOp(opMulMod, 8, 3, 1)
	table[EXP] = newOp(opExp, 10, 2, 1)
	table[SIGNEXTEND] = newOp(opSignExtend, 5, 2, 1)

	table[LT] = newOp(opLt, 3, 2, 1)
	table[GT] = newOp(opGt, 3, 2, 1)
	table[SLT] = newOp(opSLt, 3, 2, 1)
	table[SGT] = newOp(opSGt, 3, 2, 1)
	table[EQ] = newOp(opEq, 3, 2, 1)
	table[ISZERO] = newOp(opIsZero, 3, 1, 1)
	table[AND] = newOp(opAnd, 3, 2, 1)
	table[OR] = newOp(opOr, 3, 2, 1)
	table[XOR] = newOp(opXor, 3, 2, 1)
	table[NOT] = newOp(opNot, 3, 1, 1)
	table[BYTE] = newOp(opByte, 3, 2, 1)

	table[SHA3] = newOp(opSha3, 30, 2, 1)

	table[ADDRESS] = newOp(opAddress, 2, 0, 1)
	table[BALANCE] = newOp(opBalance, gasBalance, 1, 1)
	table[ORIGIN] = newOp(opOrigin, 2, 0, 1)
	table[CALLER] = newOp(opCaller, 2, 0, 1)
	table[CALLVALUE] = newOp(opCallValue, 2, 0, 1)
	table[CALLDATALOAD] = newOp(opCallDataLoad, 3, 1, 1)
	table[CALLDATASIZE] = newOp(opCallDataSize, 2, 0, 1)
	table[CALLDATACOPY] = newOp(opCallDataCopy, 3, 3, 0)
	table[CODESIZE] = newOp(opCodeSize, 2, 0, 1)
	table[CODECOPY] = newOp(opCodeCopy, 3, 3, 0)
	table[GASPRICE] = newOp(opGasPrice, 2, 0, 1)
	table[EXTCODESIZE] = newOp(opExtCodeSize, gasExtCode, 1, 1)
	table[EXTCODECOPY] = newOp(opExtCodeCopy, gasExtCode, 4, 0)

	table[BLOCKHASH] = newOp(opBlockHash, 20, 1, 1)
	table[COINBASE] = newOp(opCoinbase, 2, 0, 1)
	table[TIMESTAMP] = newOp(opTimestamp, 2, 0, 1)
	table[NUMBER] = newOp(opNumber, 2, 0, 1)
	table[DIFFICULTY] = newOp(opDifficulty, 2, 0, 1)
	table[GASLIMIT] = newOp(opGasLimit, 2, 0, 1)

	table[POP] = newOp(opPop, 2, 1, 0)
	table[MLOAD] = newOp(opMLoad, 3, 1, 1)
	table[MSTORE] = newOp(opMStore, 3, 2, 0)
	table[MSTORE8] = newOp(opMStore8, 3, 2, 0)
	table[SLOAD] = newOp(opSLoad, gasSLoad, 1, 1)
	table[SSTORE] = newOp(opSStore, 0, 2, 0)
	table[JUMP] = newOp(opJump, 8, 1, 0)
	table[JUMPI] = newOp(opJumpi, 10, 2, 0)
	table[PC] = newOp(opPc, 2, 0, 1)
	table[MSIZE] = newOp(opMSize, 2, 0, 1)
	table[GAS] = newOp(opGas, 2, 0, 1)
	table[JUMPDEST] = newOp(opJumpDest, 1, 0, 0)

	for i := 0; i < 32; i++ {
		table[int(PUSH1)+i] = newOp(makePush(i+1), 3, 0, 1)
	}
	for i := 0; i < 16; i++ {
		table[int(DUP1)+i] = newOp(makeDup(i), 3, i+1, i+2)
		table[int(SWAP1)+i] = newOp(makeSwap(i+1), 3, i+2, i+2)
	}
	for i := 0; i <= 4; i++ {
		table[int(LOG0)+i] = newOp(makeLog(i), 375, i+2, 0)
	}

	table[CREATE] = newOp(opCreate, 32000, 3, 1)
	table[CALL] = newOp(opCall, gasCalls, 7, 1)
	table[CALLCODE] = newOp(opCallCode, gasCalls, 7, 1)
	table[RETURN] = newOp(opReturn, 0, 2, 0)
	table[SELFDESTRUCT] = newOp(opSelfdestruct, gasSelfdestruct, 1, 0)

	if revision >= corsa.R02_Meridian {
		table[SHL] = newOp(opShl, 3, 2, 1)
		table[SHR] = newOp(opShr, 3, 2, 1)
		table[SAR] = newOp(opSar, 3, 2, 1)
		table[RETURNDATASIZE] = newOp(opReturnDataSize, 2, 0, 1)
		table[RETURNDATACOPY] = newOp(opReturnDataCopy, 3, 3, 0)
		table[DELEGATECALL] = newOp(opDelegateCall, gasCalls, 6, 1)
		table[CREATE2] = newOp(opCreate2, 32000, 4, 1)
		table[STATICCALL] = newOp(opStaticCall, gasCalls, 6, 1)
		table[REVERT] = newOp(opRevert, 0, 2, 0)
	}

	return &table, nil
}
