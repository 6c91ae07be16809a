// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package chain provides the block-level driver of the execution engine: it
// opens blocks, applies transactions sequentially through a Processor, and
// finalizes blocks including the coinbase reward. It owns the world state
// and brackets every access in a scope that tracks the state root.
package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/corsa-chain/corsa"
	"github.com/corsa-chain/corsa/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// blockReward is the amount of chain currency minted to the coinbase of
// every finalized block.
var blockReward = corsa.NewValue(5_000_000_000_000_000_000) // 5 * 10^18

// Header summarizes one block.
type Header struct {
	ParentHash corsa.Hash
	Number     int64
	Timestamp  int64
	Coinbase   corsa.Address
	GasLimit   corsa.Gas
	GasUsed    corsa.Gas
	Difficulty corsa.Word
	StateRoot  corsa.Hash
}

// Hash derives the identity of the block from its header content.
func (h *Header) Hash() corsa.Hash {
	data := make([]byte, 0, 256)
	data = append(data, h.ParentHash[:]...)
	data = appendInt64(data, h.Number)
	data = appendInt64(data, h.Timestamp)
	data = append(data, h.Coinbase[:]...)
	data = appendInt64(data, int64(h.GasLimit))
	data = appendInt64(data, int64(h.GasUsed))
	data = append(data, h.Difficulty[:]...)
	data = append(data, h.StateRoot[:]...)
	return corsa.Hash(crypto.Keccak256Hash(data))
}

func appendInt64(data []byte, value int64) []byte {
	var buffer [8]byte
	binary.BigEndian.PutUint64(buffer[:], uint64(value))
	return append(data, buffer[:]...)
}

// Block is a finalized block together with the effects of its transactions.
type Block struct {
	Header       Header
	Transactions []corsa.Transaction
	Receipts     []corsa.Receipt
}

// Config parameterizes a VM instance. Interpreter and Processor name
// registered implementations.
type Config struct {
	Interpreter string
	Processor   string
	Revision    corsa.Revision
	ChainID     corsa.Word
	GasLimit    corsa.Gas
	Coinbase    corsa.Address
	Logger      log.Logger
}

// VM drives block production on top of a world state: transactions are
// applied to an open block one by one, and MineBlock seals the block,
// paying the coinbase reward and chaining the next one. A VM is not safe
// for concurrent use; block processing is sequential by protocol rule.
type VM struct {
	db        *state.DB
	processor corsa.Processor
	config    Config
	log       log.Logger

	header       Header
	transactions []corsa.Transaction
	receipts     []corsa.Receipt
	blocks       []*Block
}

func NewVM(config Config) (*VM, error) {
	interpreter, err := corsa.NewInterpreter(config.Interpreter, config.Revision)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter: %w", err)
	}
	processor, err := corsa.NewProcessor(config.Processor, interpreter)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Root()
	}
	if config.GasLimit == 0 {
		config.GasLimit = 30_000_000
	}
	return &VM{
		db:        state.NewDB(),
		processor: processor,
		config:    config,
		log:       logger,
		header: Header{
			Number:   1,
			GasLimit: config.GasLimit,
			Coinbase: config.Coinbase,
		},
	}, nil
}

// withState brackets an access to the world state. A read-only acquisition
// asserts the state root is unchanged on release; a mutation under read-only
// access is a bookkeeping defect, not a recoverable condition. A mutable
// acquisition records the new root in the open block's header on release.
func (vm *VM) withState(readOnly bool, fn func(db *state.DB) error) error {
	rootBefore := vm.db.RootHash()
	err := fn(vm.db)
	rootAfter := vm.db.RootHash()
	if readOnly {
		if rootAfter != rootBefore {
			panic(fmt.Sprintf("state mutated under read-only access, root %v -> %v", rootBefore, rootAfter))
		}
		return err
	}
	if rootAfter != rootBefore {
		vm.header.StateRoot = rootAfter
	}
	return err
}

// SetBalance credits an account in the open state, bypassing transaction
// processing. It is intended for genesis initialization and tests.
func (vm *VM) SetBalance(addr corsa.Address, balance corsa.Value) {
	_ = vm.withState(false, func(db *state.DB) error {
		db.SetBalance(addr, balance)
		return nil
	})
}

// GetBalance reads an account balance from the current state.
func (vm *VM) GetBalance(addr corsa.Address) corsa.Value {
	var balance corsa.Value
	_ = vm.withState(true, func(db *state.DB) error {
		balance = db.GetBalance(addr)
		return nil
	})
	return balance
}

// SetCode installs contract code in the open state, bypassing the creation
// protocol. It is intended for genesis initialization and tests.
func (vm *VM) SetCode(addr corsa.Address, code corsa.Code) {
	_ = vm.withState(false, func(db *state.DB) error {
		db.SetCode(addr, code)
		return nil
	})
}

// GetCode reads the contract code deployed at the given address.
func (vm *VM) GetCode(addr corsa.Address) corsa.Code {
	var code corsa.Code
	_ = vm.withState(true, func(db *state.DB) error {
		code = db.GetCode(addr)
		return nil
	})
	return code
}

// GetStorage reads one storage slot of the given account.
func (vm *VM) GetStorage(addr corsa.Address, key corsa.Key) corsa.Word {
	var value corsa.Word
	_ = vm.withState(true, func(db *state.DB) error {
		value = db.GetStorage(addr, key)
		return nil
	})
	return value
}

// ApplyTransaction executes one transaction against the open block. The
// returned error is non-nil only for engine defects; rejected and failed
// transactions are reported through the receipt.
func (vm *VM) ApplyTransaction(transaction corsa.Transaction) (corsa.Receipt, error) {
	block := corsa.BlockParameters{
		ChainID:     vm.config.ChainID,
		BlockNumber: vm.header.Number,
		Timestamp:   vm.header.Timestamp,
		Coinbase:    vm.header.Coinbase,
		GasLimit:    vm.header.GasLimit - vm.header.GasUsed,
		Difficulty:  vm.header.Difficulty,
		Revision:    vm.config.Revision,
	}

	var receipt corsa.Receipt
	err := vm.withState(false, func(db *state.DB) error {
		res, err := vm.processor.Run(block, transaction, db)
		if err != nil {
			return err
		}
		db.EndTransaction()
		db.ClearLogs()
		receipt = res
		return nil
	})
	if err != nil {
		return corsa.Receipt{}, fmt.Errorf("failed to apply transaction: %w", err)
	}

	vm.header.GasUsed += receipt.GasUsed
	vm.transactions = append(vm.transactions, transaction)
	vm.receipts = append(vm.receipts, receipt)

	vm.log.Debug("applied transaction",
		"block", vm.header.Number,
		"success", receipt.Success,
		"gasUsed", receipt.GasUsed)
	return receipt, nil
}

// MineBlock finalizes the open block: the coinbase collects the block
// reward, the block is sealed and recorded, and a fresh block is opened on
// top of it.
func (vm *VM) MineBlock() (*Block, error) {
	err := vm.withState(false, func(db *state.DB) error {
		coinbase := vm.header.Coinbase
		db.SetBalance(coinbase, corsa.Add(db.GetBalance(coinbase), blockReward))
		db.EndTransaction()
		return nil
	})
	if err != nil {
		return nil, err
	}

	block := &Block{
		Header:       vm.header,
		Transactions: vm.transactions,
		Receipts:     vm.receipts,
	}
	vm.blocks = append(vm.blocks, block)

	hash := block.Header.Hash()
	_ = vm.withState(false, func(db *state.DB) error {
		db.RecordBlockHash(block.Header.Number, hash)
		return nil
	})

	vm.log.Info("mined block",
		"number", block.Header.Number,
		"transactions", len(block.Transactions),
		"gasUsed", block.Header.GasUsed,
		"stateRoot", block.Header.StateRoot)

	vm.header = Header{
		ParentHash: hash,
		Number:     block.Header.Number + 1,
		Timestamp:  block.Header.Timestamp,
		Coinbase:   vm.config.Coinbase,
		GasLimit:   vm.config.GasLimit,
		StateRoot:  block.Header.StateRoot,
	}
	vm.transactions = nil
	vm.receipts = nil
	return block, nil
}

// GetBlock returns the mined block with the given number, or nil if no such
// block exists.
func (vm *VM) GetBlock(number int64) *Block {
	for _, block := range vm.blocks {
		if block.Header.Number == number {
			return block
		}
	}
	return nil
}

// Head returns the header of the block currently open for transactions.
func (vm *VM) Head() Header {
	return vm.header
}
