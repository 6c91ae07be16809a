// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state provides an in-memory implementation of the StateAccess
// interface backing transaction execution. Every mutation is recorded in a
// journal of undo operations, making arbitrary nested snapshots cheap to
// take and cheap to roll back.
package state

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/corsa-chain/corsa"
	"golang.org/x/crypto/sha3"
)

type account struct {
	balance corsa.Value
	nonce   uint64
	code    corsa.Code
	storage map[corsa.Key]corsa.Word
}

func (a *account) isEmpty() bool {
	return a.balance.IsZero() && a.nonce == 0 && len(a.code) == 0
}

// DB is a journal-backed world state. It is not safe for concurrent use;
// transaction execution is strictly sequential by protocol rule.
type DB struct {
	accounts    map[corsa.Address]*account
	blockHashes map[int64]corsa.Hash

	// undo holds one reverse operation per mutation since the beginning of
	// the current transaction. A snapshot is nothing but a position in this
	// list.
	undo []func()

	logs       []corsa.Log
	destructed map[corsa.Address]bool
}

func NewDB() *DB {
	return &DB{
		accounts:    map[corsa.Address]*account{},
		blockHashes: map[int64]corsa.Hash{},
		destructed:  map[corsa.Address]bool{},
	}
}

func (db *DB) getOrCreateAccount(addr corsa.Address) *account {
	cur, found := db.accounts[addr]
	if !found {
		cur = &account{storage: map[corsa.Key]corsa.Word{}}
		db.accounts[addr] = cur
		db.undo = append(db.undo, func() {
			delete(db.accounts, addr)
		})
	}
	return cur
}

func (db *DB) AccountExists(addr corsa.Address) bool {
	cur, found := db.accounts[addr]
	return found && !cur.isEmpty()
}

func (db *DB) GetBalance(addr corsa.Address) corsa.Value {
	if cur, found := db.accounts[addr]; found {
		return cur.balance
	}
	return corsa.Value{}
}

func (db *DB) SetBalance(addr corsa.Address, balance corsa.Value) {
	cur := db.getOrCreateAccount(addr)
	old := cur.balance
	if old == balance {
		return
	}
	cur.balance = balance
	db.undo = append(db.undo, func() {
		cur.balance = old
	})
}

func (db *DB) GetNonce(addr corsa.Address) uint64 {
	if cur, found := db.accounts[addr]; found {
		return cur.nonce
	}
	return 0
}

func (db *DB) SetNonce(addr corsa.Address, nonce uint64) {
	cur := db.getOrCreateAccount(addr)
	old := cur.nonce
	if old == nonce {
		return
	}
	cur.nonce = nonce
	db.undo = append(db.undo, func() {
		cur.nonce = old
	})
}

func (db *DB) GetCode(addr corsa.Address) corsa.Code {
	if cur, found := db.accounts[addr]; found {
		return cur.code
	}
	return nil
}

func (db *DB) GetCodeSize(addr corsa.Address) int {
	return len(db.GetCode(addr))
}

func (db *DB) GetCodeHash(addr corsa.Address) corsa.Hash {
	cur, found := db.accounts[addr]
	if !found || len(cur.code) == 0 {
		return corsa.Hash{}
	}
	return keccak256(cur.code)
}

func (db *DB) SetCode(addr corsa.Address, code corsa.Code) {
	cur := db.getOrCreateAccount(addr)
	old := cur.code
	cur.code = code
	db.undo = append(db.undo, func() {
		cur.code = old
	})
}

func (db *DB) GetStorage(addr corsa.Address, key corsa.Key) corsa.Word {
	if cur, found := db.accounts[addr]; found {
		return cur.storage[key]
	}
	return corsa.Word{}
}

func (db *DB) SetStorage(addr corsa.Address, key corsa.Key, value corsa.Word) {
	cur := db.getOrCreateAccount(addr)
	old, hadValue := cur.storage[key]
	if old == value {
		return
	}
	if value == (corsa.Word{}) {
		delete(cur.storage, key)
	} else {
		cur.storage[key] = value
	}
	db.undo = append(db.undo, func() {
		if hadValue {
			cur.storage[key] = old
		} else {
			delete(cur.storage, key)
		}
	})
}

func (db *DB) SelfDestruct(addr corsa.Address, beneficiary corsa.Address) bool {
	balance := db.GetBalance(addr)
	if addr != beneficiary {
		db.SetBalance(beneficiary, corsa.Add(db.GetBalance(beneficiary), balance))
	}
	db.SetBalance(addr, corsa.Value{})

	if db.destructed[addr] {
		return false
	}
	db.destructed[addr] = true
	db.undo = append(db.undo, func() {
		delete(db.destructed, addr)
	})
	return true
}

func (db *DB) CreateSnapshot() corsa.Snapshot {
	return corsa.Snapshot(len(db.undo))
}

func (db *DB) RestoreSnapshot(snapshot corsa.Snapshot) {
	for len(db.undo) > int(snapshot) {
		db.undo[len(db.undo)-1]()
		db.undo = db.undo[:len(db.undo)-1]
	}
}

func (db *DB) EmitLog(log corsa.Log) {
	db.logs = append(db.logs, log)
	db.undo = append(db.undo, func() {
		db.logs = db.logs[:len(db.logs)-1]
	})
}

func (db *DB) GetLogs() []corsa.Log {
	return db.logs
}

func (db *DB) GetBlockHash(number int64) corsa.Hash {
	return db.blockHashes[number]
}

// RecordBlockHash makes the hash of a completed block available to the
// BLOCKHASH instruction of subsequent transactions. Block hashes are part of
// the chain history, not of the mutable state, so they are not journaled.
func (db *DB) RecordBlockHash(number int64, hash corsa.Hash) {
	db.blockHashes[number] = hash
}

// EndTransaction seals the effects of the current transaction: destructed
// accounts are removed for good and the journal is discarded, making all
// mutations permanent. Logs are retained for the receipt.
func (db *DB) EndTransaction() {
	for addr := range db.destructed {
		delete(db.accounts, addr)
	}
	db.destructed = map[corsa.Address]bool{}
	db.undo = nil
}

// ClearLogs drops the accumulated logs, to be called after they have been
// captured in a transaction receipt.
func (db *DB) ClearLogs() {
	db.logs = nil
}

// RootHash derives a commitment to the full state content by hashing all
// accounts in address order. It is content-addressed, so two states holding
// the same accounts report the same root no matter how they got there.
func (db *DB) RootHash() corsa.Hash {
	addresses := make([]corsa.Address, 0, len(db.accounts))
	for addr, cur := range db.accounts {
		if !cur.isEmpty() || len(cur.storage) > 0 {
			addresses = append(addresses, addr)
		}
	}
	sort.Slice(addresses, func(i, j int) bool {
		return bytes.Compare(addresses[i][:], addresses[j][:]) < 0
	})

	hasher := sha3.NewLegacyKeccak256()
	for _, addr := range addresses {
		cur := db.accounts[addr]
		hasher.Write(addr[:])
		hasher.Write(cur.balance[:])
		nonce := [8]byte{}
		binary.BigEndian.PutUint64(nonce[:], cur.nonce)
		hasher.Write(nonce[:])
		hasher.Write(cur.code)

		keys := make([]corsa.Key, 0, len(cur.storage))
		for key := range cur.storage {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			return bytes.Compare(keys[i][:], keys[j][:]) < 0
		})
		for _, key := range keys {
			value := cur.storage[key]
			hasher.Write(key[:])
			hasher.Write(value[:])
		}
	}

	var root corsa.Hash
	hasher.Sum(root[:0])
	return root
}

func keccak256(data []byte) corsa.Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	var hash corsa.Hash
	hasher.Sum(hash[:0])
	return hash
}
