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
	"math"

	"github.com/corsa-chain/corsa"
	"github.com/holiman/uint256"
)

// maxMemoryExpansionSize is the size above which the memory expansion cost
// exceeds any gas a computation could hold, making larger requests pointless.
const maxMemoryExpansionSize = 0x1FFFFFFFE0 // 2^34 - 32

// Memory is the linear byte-addressable scratch space of one computation. It
// starts empty, grows on demand in 32-byte words, and never shrinks. Every
// expansion is paid for before it happens; a failed charge leaves the memory
// untouched.
type Memory struct {
	store             []byte
	currentMemoryCost corsa.Gas
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// expansionCosts returns the total gas price of a memory of the given size.
// The cost grows quadratically in the number of words, so large sizes
// saturate at the maximum gas value instead of overflowing.
func (m *Memory) expansionCosts(size uint64) corsa.Gas {
	if size > maxMemoryExpansionSize {
		return corsa.Gas(math.MaxInt64)
	}
	words := corsa.SizeInWords(size)
	return corsa.Gas(words*words/512 + 3*words)
}

// expandMemory charges for and grows the memory to hold size bytes starting
// at offset. The charge is taken before the store is grown, so an out-of-gas
// failure leaves the observable memory size unchanged. A zero size is a no-op
// regardless of the offset.
func (m *Memory) expandMemory(offset, size uint64, meter *gasMeter) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < size { // overflow
		return errGasUintOverflow
	}
	return m.expandMemoryWithoutCharging(needed, meter)
}

func (m *Memory) expandMemoryWithoutCharging(needed uint64, meter *gasMeter) error {
	needed = corsa.SizeInWords(needed) * 32
	if needed <= m.length() {
		return nil
	}
	if needed > maxMemoryExpansionSize {
		return errGasUintOverflow
	}
	cost := m.expansionCosts(needed)
	if err := meter.consume(cost - m.currentMemoryCost); err != nil {
		return err
	}
	m.currentMemoryCost = cost
	m.store = append(m.store, make([]byte, needed-m.length())...)
	return nil
}

// getSlice obtains a mutable slice of the memory covering [offset,
// offset+size), charging for and performing any required expansion. The
// returned slice aliases the memory store and is invalidated by the next
// expansion.
func (m *Memory) getSlice(offset, size uint64, meter *gasMeter) ([]byte, error) {
	if err := m.expandMemory(offset, size, meter); err != nil {
		return nil, err
	}
	return m.store[offset : offset+size], nil
}

// readWord reads the 32-byte word at the given offset into target, expanding
// the memory as needed.
func (m *Memory) readWord(offset uint64, target *uint256.Int, meter *gasMeter) error {
	data, err := m.getSlice(offset, 32, meter)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}

// setWord writes the 32-byte big-endian representation of value at the given
// offset, expanding the memory as needed.
func (m *Memory) setWord(offset uint64, value *uint256.Int, meter *gasMeter) error {
	data, err := m.getSlice(offset, 32, meter)
	if err != nil {
		return err
	}
	b := value.Bytes32()
	copy(data, b[:])
	return nil
}

// setByte writes a single byte at the given offset, expanding the memory as
// needed.
func (m *Memory) setByte(offset uint64, value byte, meter *gasMeter) error {
	data, err := m.getSlice(offset, 1, meter)
	if err != nil {
		return err
	}
	data[0] = value
	return nil
}
