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
	"github.com/corsa-chain/corsa"
	"github.com/holiman/uint256"
)

// The instruction implementations in this file cover the pure computational
// part of the instruction set: arithmetic, comparisons, bit operations,
// hashing, memory, storage, and control flow. Environment queries live in
// instructions_env.go, nested calls and contract creation in calls.go.
//
// Stack bounds and static gas prices are validated by the dispatch loop
// before an implementation runs, so implementations only deal with their
// dynamic costs and semantics.

func opStop(c *context) error {
	c.status = statusStopped
	return nil
}

func opInvalid(c *context) error {
	return errInvalidOpCode
}

// ----------------------------- arithmetic ------------------------------

func opAdd(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Add(a, b)
	return nil
}

func opMul(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mul(a, b)
	return nil
}

func opSub(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Sub(a, b)
	return nil
}

func opDiv(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Div(a, b)
	return nil
}

func opSDiv(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SDiv(a, b)
	return nil
}

func opMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mod(a, b)
	return nil
}

func opSMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SMod(a, b)
	return nil
}

func opAddMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.pop()
	m := c.stack.peek()
	m.AddMod(a, b, m)
	return nil
}

func opMulMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.pop()
	m := c.stack.peek()
	m.MulMod(a, b, m)
	return nil
}

// opExp charges 10 gas per significant byte of the exponent on top of the
// static price, so the worst case exponent costs 320 gas extra.
func opExp(c *context) error {
	base := c.stack.pop()
	exponent := c.stack.peek()
	if err := c.gas.consume(gasExpByte * corsa.Gas(exponent.ByteLen())); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSignExtend(c *context) error {
	back := c.stack.pop()
	num := c.stack.peek()
	num.ExtendSign(num, back)
	return nil
}

// ----------------------- comparisons and bit logic ----------------------

func opLt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Lt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opGt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Gt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opSLt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Slt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opSGt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Sgt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opEq(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Eq(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opIsZero(c *context) error {
	a := c.stack.peek()
	if a.IsZero() {
		a.SetOne()
	} else {
		a.Clear()
	}
	return nil
}

func opAnd(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.And(a, b)
	return nil
}

func opOr(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Or(a, b)
	return nil
}

func opXor(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Xor(a, b)
	return nil
}

func opNot(c *context) error {
	a := c.stack.peek()
	a.Not(a)
	return nil
}

func opByte(c *context) error {
	index := c.stack.pop()
	value := c.stack.peek()
	value.Byte(index)
	return nil
}

func opShl(c *context) error {
	shift := c.stack.pop()
	value := c.stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opShr(c *context) error {
	shift := c.stack.pop()
	value := c.stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opSar(c *context) error {
	shift := c.stack.pop()
	value := c.stack.peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil
}

// ------------------------------- hashing --------------------------------

// opSha3 charges 6 gas per hashed word on top of the static price, plus the
// cost of expanding the memory to cover the hashed range.
func opSha3(c *context) error {
	offset, size, err := popMemoryRange(c)
	if err != nil {
		return err
	}
	if err := c.gas.consume(gasKeccakWord * corsa.Gas(corsa.SizeInWords(size))); err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset, size, &c.gas)
	if err != nil {
		return err
	}
	hash := hashCache.hash(data)
	c.stack.pushUndefined().SetBytes(hash[:])
	return nil
}

// ------------------------------- memory ---------------------------------

func opMLoad(c *context) error {
	offset, err := popUint64(c)
	if err != nil {
		return err
	}
	return c.memory.readWord(offset, c.stack.pushUndefined(), &c.gas)
}

func opMStore(c *context) error {
	offset, err := popUint64(c)
	if err != nil {
		return err
	}
	value := c.stack.pop()
	return c.memory.setWord(offset, value, &c.gas)
}

func opMStore8(c *context) error {
	offset, err := popUint64(c)
	if err != nil {
		return err
	}
	value := c.stack.pop()
	return c.memory.setByte(offset, byte(value.Uint64()), &c.gas)
}

func opMSize(c *context) error {
	c.stack.pushUndefined().SetUint64(c.memory.length())
	return nil
}

// ------------------------------- storage --------------------------------

func opSLoad(c *context) error {
	top := c.stack.peek()
	key := corsa.Key(top.Bytes32())
	value := c.context.GetStorage(c.params.Recipient, key)
	top.SetBytes32(value[:])
	return nil
}

// opSStore prices the store by the transition it performs: creating a slot
// costs 20000, every other store 5000, and clearing a slot earns a 15000
// refund. The gas is consumed before the state is touched.
func opSStore(c *context) error {
	if c.params.Static {
		return errStaticContextViolation
	}
	key := corsa.Key(c.stack.pop().Bytes32())
	value := corsa.Word(c.stack.pop().Bytes32())
	current := c.context.GetStorage(c.params.Recipient, key)

	zero := corsa.Word{}
	cost := gasSStoreReset
	if current == zero && value != zero {
		cost = gasSStoreSet
	}
	if err := c.gas.consume(cost); err != nil {
		return err
	}
	if current != zero && value == zero {
		c.gas.refund(gasSStoreRefund)
	}
	c.context.SetStorage(c.params.Recipient, key, value)
	return nil
}

// ----------------------------- control flow -----------------------------

func opJump(c *context) error {
	dest := c.stack.pop()
	return jumpTo(c, dest)
}

func opJumpi(c *context) error {
	dest := c.stack.pop()
	condition := c.stack.pop()
	if condition.IsZero() {
		return nil
	}
	return jumpTo(c, dest)
}

// jumpTo validates the destination against the code analysis and positions
// the program counter such that the dispatch loop's increment lands on the
// JUMPDEST itself.
func jumpTo(c *context, dest *uint256.Int) error {
	if !dest.IsUint64() || !c.code.isJumpDest(dest.Uint64()) {
		return errInvalidJump
	}
	c.pc = dest.Uint64() - 1
	return nil
}

func opJumpDest(c *context) error {
	return nil
}

func opPc(c *context) error {
	c.stack.pushUndefined().SetUint64(c.pc)
	return nil
}

func opGas(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.gas.left()))
	return nil
}

func opPop(c *context) error {
	c.stack.pop()
	return nil
}

// ------------------------- push, dup, and swap --------------------------

func makePush(size int) executionFunc {
	return func(c *context) error {
		start := c.pc + 1
		end := start + uint64(size)
		if end <= c.code.length() {
			c.stack.pushUndefined().SetBytes(c.code.code[start:end])
		} else {
			// Pushes reaching beyond the end of the code read zero bytes
			// for the missing payload.
			c.stack.pushUndefined().SetBytes(c.code.getData(start, uint64(size)))
		}
		c.pc += uint64(size)
		return nil
	}
}

func makeDup(index int) executionFunc {
	return func(c *context) error {
		c.stack.dup(index)
		return nil
	}
}

func makeSwap(index int) executionFunc {
	return func(c *context) error {
		c.stack.swap(index)
		return nil
	}
}

// ------------------------------- helpers --------------------------------

// popUint64 pops one stack element that is expected to be a memory offset or
// size. Values beyond the uint64 range would price any use of them beyond
// all obtainable gas, so they are rejected as an overflow right away.
func popUint64(c *context) (uint64, error) {
	value := c.stack.pop()
	if !value.IsUint64() {
		return 0, errGasUintOverflow
	}
	return value.Uint64(), nil
}

// popMemoryRange pops an offset/size pair addressing a memory range. A zero
// size makes the offset irrelevant, so it is not range-checked in that case.
func popMemoryRange(c *context) (offset, size uint64, err error) {
	offsetValue := c.stack.pop()
	sizeValue := c.stack.pop()
	if !sizeValue.IsUint64() {
		return 0, 0, errGasUintOverflow
	}
	size = sizeValue.Uint64()
	if size == 0 {
		return 0, 0, nil
	}
	if !offsetValue.IsUint64() {
		return 0, 0, errGasUintOverflow
	}
	return offsetValue.Uint64(), size, nil
}
