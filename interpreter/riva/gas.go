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

import "github.com/corsa-chain/corsa"

// Dynamic gas prices charged by instruction implementations on top of the
// static prices recorded in the dispatch table.
const (
	gasCopyWord           corsa.Gas = 3   // per word copied by *COPY instructions
	gasKeccakWord         corsa.Gas = 6   // per word hashed by SHA3
	gasExpByte            corsa.Gas = 10  // per significant exponent byte of EXP
	gasLogTopic           corsa.Gas = 375 // per topic of LOG0..LOG4
	gasLogData            corsa.Gas = 8   // per byte of log payload
	gasSStoreSet          corsa.Gas = 20000
	gasSStoreReset        corsa.Gas = 5000
	gasSStoreRefund       corsa.Gas = 15000
	gasSelfdestructRefund corsa.Gas = 24000
	gasCallValue          corsa.Gas = 9000 // surcharge for value-bearing calls
	gasCallNewAccount     corsa.Gas = 25000
	gasCallStipend        corsa.Gas = 2300 // granted to the callee of a value-bearing call
	gasCreateData         corsa.Gas = 200  // per byte of deployed contract code
)

// gasMeter tracks the gas budget of a single computation together with the
// refunds it accumulated. The remaining balance never goes negative: a
// consume that would overdraw fails and leaves the balance untouched.
type gasMeter struct {
	remaining corsa.Gas
	refunded  corsa.Gas
}

func newGasMeter(budget corsa.Gas) gasMeter {
	return gasMeter{remaining: budget}
}

// consume deducts amount from the remaining balance, failing with errOutOfGas
// without deducting anything if the balance is insufficient. Negative amounts
// are rejected the same way to neutralize upstream overflows. Consuming the
// full remaining budget of a failed frame is the business of the frame's
// result generation, not of the meter.
func (g *gasMeter) consume(amount corsa.Gas) error {
	if amount < 0 || g.remaining < amount {
		return errOutOfGas
	}
	g.remaining -= amount
	return nil
}

// returnGas credits unused gas handed back by a completed child call.
func (g *gasMeter) returnGas(amount corsa.Gas) {
	g.remaining += amount
}

// refund records a gas refund to be paid out at the end of the transaction.
// The counter may temporarily exceed the final payout since refunds are
// capped by the processor when the transaction concludes.
func (g *gasMeter) refund(amount corsa.Gas) {
	g.refunded += amount
}

func (g *gasMeter) left() corsa.Gas {
	return g.remaining
}

// callGas determines the gas forwarded to a child call. Of the gas remaining
// after the upfront costs, one 64th is always retained by the caller, so a
// nested call can never drain its parent completely.
func callGas(available, requested corsa.Gas) corsa.Gas {
	retained := available / 64
	forwarded := available - retained
	if requested < forwarded {
		return requested
	}
	return forwarded
}
