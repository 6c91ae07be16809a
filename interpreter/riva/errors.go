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

const (
	errGasUintOverflow        = corsa.ConstError("gas uint64 overflow")
	errInvalidJump            = corsa.ConstError("invalid jump destination")
	errInvalidOpCode          = corsa.ConstError("invalid opcode")
	errInvalidRevision        = corsa.ConstError("opcode not enabled for revision")
	errOutOfGas               = corsa.ConstError("out of gas")
	errReturnDataOutOfBounds  = corsa.ConstError("return data out of bounds")
	errStackOverflow          = corsa.ConstError("stack overflow")
	errStackUnderflow         = corsa.ConstError("stack underflow")
	errStaticContextViolation = corsa.ConstError("state mutation in static context")
)
