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
	lru "github.com/hashicorp/golang-lru/v2"
)

// codeAnalysisCacheCapacity is the number of analyzed codes kept for reuse.
// At the maximum code size of 24KB per entry this limits the cache to ~100MB.
const codeAnalysisCacheCapacity = 4096

// codeStream couples the immutable byte code of one computation with the
// result of its jump destination analysis. Reading beyond the end of the code
// yields STOP bytes, implicitly terminating every code.
type codeStream struct {
	code      []byte
	jumpDests bitvec
}

// newCodeStream analyzes the given code, reusing a cached analysis when the
// code hash is known. A nil hash forces a fresh analysis.
func newCodeStream(code []byte, hash *corsa.Hash) codeStream {
	if hash == nil {
		return codeStream{code: code, jumpDests: analyzeCode(code)}
	}
	if dests, found := codeAnalysisCache.Get(*hash); found {
		return codeStream{code: code, jumpDests: dests}
	}
	dests := analyzeCode(code)
	codeAnalysisCache.Add(*hash, dests)
	return codeStream{code: code, jumpDests: dests}
}

func (c codeStream) length() uint64 {
	return uint64(len(c.code))
}

// get returns the instruction byte at the given position, or STOP when the
// position is beyond the end of the code.
func (c codeStream) get(pos uint64) OpCode {
	if pos >= c.length() {
		return STOP
	}
	return OpCode(c.code[pos])
}

// isJumpDest reports whether the given position holds a JUMPDEST instruction
// that is not part of the payload of a preceding push.
func (c codeStream) isJumpDest(pos uint64) bool {
	return pos < c.length() && c.jumpDests.isSet(pos)
}

// getData returns a copy of size bytes of code starting at offset, padded
// with zeros where the requested range extends beyond the end of the code.
func (c codeStream) getData(offset, size uint64) []byte {
	res := make([]byte, size)
	if offset < c.length() {
		copy(res, c.code[offset:])
	}
	return res
}

// bitvec marks one bit per code position. A set bit identifies a valid jump
// destination.
type bitvec []byte

func (b bitvec) set(pos uint64) {
	b[pos/8] |= 1 << (pos % 8)
}

func (b bitvec) isSet(pos uint64) bool {
	return b[pos/8]&(1<<(pos%8)) != 0
}

// analyzeCode computes the set of valid jump destinations of the given code.
// A position is a valid destination if it holds a JUMPDEST byte that is not
// inside the payload of a push instruction.
func analyzeCode(code []byte) bitvec {
	dests := make(bitvec, len(code)/8+1)
	for i := 0; i < len(code); i++ {
		op := OpCode(code[i])
		if op == JUMPDEST {
			dests.set(uint64(i))
		} else if op.isPush() {
			i += op.pushSize()
		}
	}
	return dests
}

var codeAnalysisCache = newCodeAnalysisCache()

func newCodeAnalysisCache() *lru.Cache[corsa.Hash, bitvec] {
	cache, err := lru.New[corsa.Hash, bitvec](codeAnalysisCacheCapacity)
	if err != nil {
		panic(err) // can only fail for non-positive capacities
	}
	return cache
}
