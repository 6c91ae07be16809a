// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chain

import (
	"bytes"
	"testing"

	"github.com/corsa-chain/corsa"
	_ "github.com/corsa-chain/corsa/interpreter/riva"
	_ "github.com/corsa-chain/corsa/processor/brenta"
	"github.com/corsa-chain/corsa/state"
)

func newTestVM(t *testing.T) *VM {
	t.Helper()
	vm, err := NewVM(Config{
		Interpreter: "riva",
		Processor:   "brenta",
		Revision:    corsa.NewestRevision,
		Coinbase:    corsa.Address{0xc0},
	})
	if err != nil {
		t.Fatalf("failed to create VM: %v", err)
	}
	return vm
}

func TestVM_MiningPaysTheBlockReward(t *testing.T) {
	vm := newTestVM(t)

	block, err := vm.MineBlock()
	if err != nil {
		t.Fatalf("failed to mine block: %v", err)
	}
	if got, want := block.Header.Number, int64(1); got != want {
		t.Errorf("unexpected block number, got %d, want %d", got, want)
	}
	if got, want := vm.GetBalance(corsa.Address{0xc0}), blockReward; got != want {
		t.Errorf("unexpected coinbase balance, got %v, want %v", got, want)
	}
	if got, want := vm.Head().Number, int64(2); got != want {
		t.Errorf("unexpected head number, got %d, want %d", got, want)
	}
	if got, want := vm.Head().ParentHash, block.Header.Hash(); got != want {
		t.Errorf("unexpected parent hash, got %v, want %v", got, want)
	}
}

func TestVM_AppliedTransactionsEndUpInTheMinedBlock(t *testing.T) {
	vm := newTestVM(t)
	sender := corsa.Address{0x01}
	recipient := corsa.Address{0x02}
	vm.SetBalance(sender, corsa.NewValue(1_000_000))

	receipt, err := vm.ApplyTransaction(corsa.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		Value:     corsa.NewValue(100),
		GasLimit:  30_000,
	})
	if err != nil {
		t.Fatalf("failed to apply transaction: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("transaction failed")
	}

	block, err := vm.MineBlock()
	if err != nil {
		t.Fatalf("failed to mine block: %v", err)
	}
	if got, want := len(block.Transactions), 1; got != want {
		t.Fatalf("unexpected number of transactions, got %d, want %d", got, want)
	}
	if got, want := len(block.Receipts), 1; got != want {
		t.Fatalf("unexpected number of receipts, got %d, want %d", got, want)
	}
	if got, want := block.Header.GasUsed, corsa.Gas(21_000); got != want {
		t.Errorf("unexpected block gas usage, got %d, want %d", got, want)
	}
	if block.Header.StateRoot == (corsa.Hash{}) {
		t.Errorf("mined block carries no state root")
	}
	if got, want := vm.GetBalance(recipient), corsa.NewValue(100); got != want {
		t.Errorf("unexpected recipient balance, got %v, want %v", got, want)
	}
	if got := vm.GetBlock(1); got == nil || got != block {
		t.Errorf("mined block is not retrievable")
	}
}

func TestVM_ContractsDeployedInEarlierBlocksStayCallable(t *testing.T) {
	vm := newTestVM(t)
	sender := corsa.Address{0x01}
	vm.SetBalance(sender, corsa.NewValue(10_000_000))

	// Runtime code storing 42 in slot 1, deployed by an init code that
	// copies its own tail.
	runtime := []byte{
		0x60, 42, 0x60, 1, 0x55, 0x00, // PUSH1 42, PUSH1 1, SSTORE, STOP
	}
	init := append([]byte{
		0x60, byte(len(runtime)), // PUSH1 size
		0x60, 12, // PUSH1 offset of the runtime code
		0x60, 0, // PUSH1 0
		0x39,                     // CODECOPY
		0x60, byte(len(runtime)), // PUSH1 size
		0x60, 0, // PUSH1 0
		0xf3, // RETURN
	}, runtime...)

	receipt, err := vm.ApplyTransaction(corsa.Transaction{
		Sender:   sender,
		Input:    init,
		GasLimit: 200_000,
	})
	if err != nil {
		t.Fatalf("failed to deploy contract: %v", err)
	}
	if !receipt.Success || receipt.ContractAddress == nil {
		t.Fatalf("deployment failed")
	}
	contract := *receipt.ContractAddress
	if got := vm.GetCode(contract); !bytes.Equal(got, runtime) {
		t.Fatalf("unexpected deployed code, got %x, want %x", got, runtime)
	}

	if _, err := vm.MineBlock(); err != nil {
		t.Fatalf("failed to mine block: %v", err)
	}

	// Call the contract in the next block.
	receipt, err = vm.ApplyTransaction(corsa.Transaction{
		Sender:    sender,
		Recipient: &contract,
		Nonce:     1,
		GasLimit:  100_000,
	})
	if err != nil {
		t.Fatalf("failed to call contract: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("contract call failed")
	}
	if got, want := vm.GetStorage(contract, corsa.Key{31: 1}), (corsa.Word{31: 42}); got != want {
		t.Errorf("unexpected storage value, got %v, want %v", got, want)
	}
}

func TestVM_BlockHashesOfMinedBlocksAreVisibleToContracts(t *testing.T) {
	vm := newTestVM(t)
	sender := corsa.Address{0x01}
	contract := corsa.Address{0x02}
	vm.SetBalance(sender, corsa.NewValue(10_000_000))

	// Stores the hash of block 1 in slot 1.
	_ = vm.withState(false, func(db *state.DB) error {
		db.SetCode(contract, corsa.Code{
			0x60, 1, // PUSH1 1
			0x40,    // BLOCKHASH
			0x60, 1, // PUSH1 1
			0x55, // SSTORE
			0x00, // STOP
		})
		return nil
	})

	first, err := vm.MineBlock()
	if err != nil {
		t.Fatalf("failed to mine block: %v", err)
	}

	receipt, err := vm.ApplyTransaction(corsa.Transaction{
		Sender:    sender,
		Recipient: &contract,
		GasLimit:  100_000,
	})
	if err != nil {
		t.Fatalf("failed to apply transaction: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("transaction failed")
	}
	if got, want := vm.GetStorage(contract, corsa.Key{31: 1}), corsa.Word(first.Header.Hash()); got != want {
		t.Errorf("unexpected stored block hash, got %v, want %v", got, want)
	}
}

func TestVM_ReadOnlyAccessDetectsMutations(t *testing.T) {
	vm := newTestVM(t)

	defer func() {
		if recover() == nil {
			t.Errorf("mutation under read-only access was not detected")
		}
	}()
	_ = vm.withState(true, func(db *state.DB) error {
		db.SetBalance(corsa.Address{0x01}, corsa.NewValue(1))
		return nil
	})
}

func TestVM_TransactionLogsAreScopedToTheirReceipt(t *testing.T) {
	vm := newTestVM(t)
	sender := corsa.Address{0x01}
	contract := corsa.Address{0x02}
	vm.SetBalance(sender, corsa.NewValue(10_000_000))

	_ = vm.withState(false, func(db *state.DB) error {
		db.SetCode(contract, corsa.Code{
			0x60, 0, 0x60, 0, 0xa0, 0x00, // PUSH1 0, PUSH1 0, LOG0, STOP
		})
		return nil
	})

	for i := uint64(0); i < 2; i++ {
		receipt, err := vm.ApplyTransaction(corsa.Transaction{
			Sender:    sender,
			Recipient: &contract,
			Nonce:     i,
			GasLimit:  100_000,
		})
		if err != nil {
			t.Fatalf("failed to apply transaction: %v", err)
		}
		if !receipt.Success {
			t.Fatalf("transaction failed")
		}
		if got, want := len(receipt.Logs), 1; got != want {
			t.Errorf("unexpected number of logs, got %d, want %d", got, want)
		}
	}
}
