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

// Processor is a component capable of executing transactions. Implementations
// execute individual transactions to progress the world state of a chain. In
// particular, they handle the charging of gas fees, the checking of nonces,
// the execution of transactions using (potentially) recursive calls of
// contracts, and the creation of new contracts.
type Processor interface {
	// Run executes the given transaction in the given context. The returned
	// error is nil for every outcome that is attributable to the transaction
	// itself, including a rejected or failed transaction; it is non-nil only
	// for defects in the processor or its environment.
	Run(BlockParameters, Transaction, StateAccess) (Receipt, error)
}

// Transaction summarizes the parameters of a transaction to be executed.
type Transaction struct {
	Sender    Address  // the sender of the transaction, paying for its execution
	Recipient *Address // the receiver of the transaction, nil if a new contract is to be created
	Nonce     uint64   // the nonce of the sender account
	Input     Data     // the input data for the transaction
	Value     Value    // the amount of network currency to transfer to the recipient
	GasLimit  Gas      // the maximum amount of gas that may be used by the transaction
	GasPrice  Value    // the price of one unit of gas for this transaction
}

// Receipt summarizes the result of the execution of a transaction.
type Receipt struct {
	Success         bool     // false if the execution ended in a revert or error, true otherwise
	Output          Data     // the output produced by the transaction
	ContractAddress *Address // filled if a contract was created by this transaction
	GasUsed         Gas      // the gas charged for the execution of the transaction
	Logs            []Log    // the logs produced by the transaction
}
