// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package corsa

//go:generate mockgen -source state_access.go -destination state_access_mock.go -package corsa

// StateAccess is the interface through which the execution engine reads and
// mutates the world state of the chain. The state is a collection of accounts,
// each with a balance, a nonce, optional code, and a key/value storage.
//
// All mutations performed through a StateAccess instance must be revocable:
// CreateSnapshot marks a point in the mutation history and RestoreSnapshot
// rewinds every mutation made since that point, including emitted logs.
// Snapshots are scoped per transaction; they do not survive a commit of the
// transaction's effects to the underlying store.
type StateAccess interface {
	// AccountExists returns true if the given address holds a non-empty
	// account. Absent accounts are readable; all their properties are
	// zero-valued.
	AccountExists(Address) bool

	GetBalance(Address) Value
	SetBalance(Address, Value)

	GetNonce(Address) uint64
	SetNonce(Address, uint64)

	GetCode(Address) Code
	GetCodeHash(Address) Hash
	GetCodeSize(Address) int
	SetCode(Address, Code)

	GetStorage(Address, Key) Word
	SetStorage(Address, Key, Word)

	// SelfDestruct destroys addr and transfers its balance to beneficiary.
	// If the beneficiary does not exist, the balance is transferred anyway.
	// Returns true if it is the first time destroying addr in the ongoing
	// transaction, false otherwise.
	SelfDestruct(addr Address, beneficiary Address) bool

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	EmitLog(Log)
	GetLogs() []Log

	// GetBlockHash returns the recorded hash of the block with the given
	// number, or the zero hash if no such block was recorded. Restricting
	// lookups to the 256 most recent ancestors is the business of the
	// BLOCKHASH instruction, not of the provider.
	GetBlockHash(number int64) Hash

	// RootHash returns a commitment to the current content of the state.
	// Two states with identical account content report identical roots.
	RootHash() Hash
}

// RunContext is the view of the world an interpreter operates on. Besides
// state access it provides the ability to perform recursive contract calls,
// which are handled by the processor driving the interpreter.
type RunContext interface {
	StateAccess

	Call(kind CallKind, parameters CallParameters) (CallResult, error)
}

// Address represents the 160-bit (20 bytes) address of an account.
type Address [20]byte

// Key represents the 256-bit (32 bytes) key of a storage slot.
type Key [32]byte

// Word represents an arbitrary 256-bit (32 byte) word on stack or in storage.
type Word [32]byte

// Value represents an amount of chain currency, typically wei.
type Value [32]byte

// Hash represents the 256-bit (32 bytes) hash of code, a block, a topic or a
// similar sequence of cryptographic summary information.
type Hash [32]byte

// Code represents the byte-code of a contract.
type Code []byte

// Data represents the input or output of contract invocations.
type Data []byte

// Gas represents an amount of computational work.
type Gas int64

// Snapshot identifies a point in the mutation history of a StateAccess
// instance to which execution can be rolled back.
type Snapshot int

// Log is a log message emitted as a side effect of a contract execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}
