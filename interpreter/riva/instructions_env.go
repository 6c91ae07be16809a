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
)

// Instructions querying the account, transaction, and block environment of
// the running computation.

func opAddress(c *context) error {
	c.stack.pushUndefined().SetBytes(c.params.Recipient[:])
	return nil
}

func opBalance(c *context) error {
	top := c.stack.peek()
	address := corsa.Address(top.Bytes20())
	balance := c.context.GetBalance(address)
	top.SetBytes32(balance[:])
	return nil
}

func opOrigin(c *context) error {
	c.stack.pushUndefined().SetBytes(c.params.Origin[:])
	return nil
}

func opCaller(c *context) error {
	c.stack.pushUndefined().SetBytes(c.params.Sender[:])
	return nil
}

func opCallValue(c *context) error {
	value := c.params.Value
	c.stack.pushUndefined().SetBytes32(value[:])
	return nil
}

// opCallDataLoad pushes the big-endian integer value of up to 32 bytes of
// call data starting at the popped offset. A window reaching beyond the end
// of the data covers only the available bytes, so a short tail reads as a
// small integer. Offsets beyond the data produce zero rather than an error.
func opCallDataLoad(c *context) error {
	top := c.stack.peek()
	input := c.params.Input
	if !top.IsUint64() || top.Uint64() >= uint64(len(input)) {
		top.Clear()
		return nil
	}
	offset := top.Uint64()
	end := offset + 32
	if end > uint64(len(input)) {
		end = uint64(len(input))
	}
	top.SetBytes(input[offset:end])
	return nil
}

func opCallDataSize(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(len(c.params.Input)))
	return nil
}

func opCallDataCopy(c *context) error {
	return copyToMemory(c, c.params.Input)
}

func opCodeSize(c *context) error {
	c.stack.pushUndefined().SetUint64(c.code.length())
	return nil
}

func opCodeCopy(c *context) error {
	return copyToMemory(c, c.code.code)
}

func opGasPrice(c *context) error {
	price := c.params.GasPrice
	c.stack.pushUndefined().SetBytes32(price[:])
	return nil
}

// opExtCodeSize reports zero for absent accounts, indistinguishable from an
// existing account without code.
func opExtCodeSize(c *context) error {
	top := c.stack.peek()
	address := corsa.Address(top.Bytes20())
	top.SetUint64(uint64(c.context.GetCodeSize(address)))
	return nil
}

func opExtCodeCopy(c *context) error {
	address := corsa.Address(c.stack.pop().Bytes20())
	return copyToMemory(c, c.context.GetCode(address))
}

func opReturnDataSize(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(len(c.returnData)))
	return nil
}

// opReturnDataCopy is the one copy instruction that does not pad: reading
// beyond the end of the return data buffer is an error that consumes the
// remaining gas of the frame.
func opReturnDataCopy(c *context) error {
	destOffset := c.stack.pop()
	dataOffset := c.stack.pop()
	size := c.stack.pop()
	if !size.IsUint64() || !dataOffset.IsUint64() {
		return errReturnDataOutOfBounds
	}
	end := dataOffset.Uint64() + size.Uint64()
	if end < size.Uint64() || end > uint64(len(c.returnData)) {
		return errReturnDataOutOfBounds
	}
	if size.IsZero() {
		return nil
	}
	if !destOffset.IsUint64() {
		return errGasUintOverflow
	}
	words := corsa.Gas(corsa.SizeInWords(size.Uint64()))
	if err := c.gas.consume(gasCopyWord * words); err != nil {
		return err
	}
	memory, err := c.memory.getSlice(destOffset.Uint64(), size.Uint64(), &c.gas)
	if err != nil {
		return err
	}
	copy(memory, c.returnData[dataOffset.Uint64():end])
	return nil
}

func opBlockHash(c *context) error {
	top := c.stack.peek()
	// Only the 256 most recent ancestors are addressable; the current
	// block, the future, and anything older read as zero.
	upper := uint64(c.params.BlockNumber)
	if !top.IsUint64() || top.Uint64() >= upper || top.Uint64()+256 < upper {
		top.Clear()
		return nil
	}
	hash := c.context.GetBlockHash(int64(top.Uint64()))
	top.SetBytes32(hash[:])
	return nil
}

func opCoinbase(c *context) error {
	c.stack.pushUndefined().SetBytes(c.params.Coinbase[:])
	return nil
}

func opTimestamp(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.params.Timestamp))
	return nil
}

func opNumber(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.params.BlockNumber))
	return nil
}

func opDifficulty(c *context) error {
	difficulty := c.params.Difficulty
	c.stack.pushUndefined().SetBytes32(difficulty[:])
	return nil
}

func opGasLimit(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.params.BlockParameters.GasLimit))
	return nil
}

// ------------------------------- helpers --------------------------------

// copyToMemory implements the common pattern of CALLDATACOPY, CODECOPY, and
// EXTCODECOPY: a (destOffset, dataOffset, size) triple copying from a source
// buffer into memory, zero-padded where the source is too short. The copy
// cost of 3 gas per word is consumed before the memory expansion is charged.
func copyToMemory(c *context, data []byte) error {
	destOffset := c.stack.pop()
	dataOffset := c.stack.pop()
	size := c.stack.pop()
	if !size.IsUint64() {
		return errGasUintOverflow
	}
	if size.IsZero() {
		return nil
	}
	if !destOffset.IsUint64() {
		return errGasUintOverflow
	}
	words := corsa.Gas(corsa.SizeInWords(size.Uint64()))
	if err := c.gas.consume(gasCopyWord * words); err != nil {
		return err
	}
	memory, err := c.memory.getSlice(destOffset.Uint64(), size.Uint64(), &c.gas)
	if err != nil {
		return err
	}
	// Offsets beyond the source read only padding.
	offset := uint64(len(data))
	if dataOffset.IsUint64() && dataOffset.Uint64() < offset {
		offset = dataOffset.Uint64()
	}
	copy(memory, getDataSlice(data, offset, size.Uint64()))
	return nil
}

// getDataSlice returns a copy of size bytes of data starting at offset,
// padded with zeros where the requested range extends beyond the data.
func getDataSlice(data []byte, offset, size uint64) []byte {
	res := make([]byte, size)
	if offset < uint64(len(data)) {
		copy(res, data[offset:])
	}
	return res
}
