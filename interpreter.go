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

// Interpreter is a component capable of executing contract byte-code. It is
// the core of the execution engine; a full engine adds the handling of
// recursive contract calls and transaction-level bookkeeping on top of it.
// Instances are obtained through NewInterpreter provided by the registry in
// this package.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified
	// context and returns the processing result. The resulting error is nil
	// whenever the code was correctly executed, even if the execution was
	// aborted due to a code-internal issue (out of gas, stack underflow, an
	// explicit revert). A non-nil error indicates a defect in the interpreter
	// or its environment; in that case the result is undefined.
	// Interpreters are required to be thread-safe.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the immutable inputs of one code execution: one
// message together with the block and transaction environment it runs in.
type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters contains information about the current block.
type BlockParameters struct {
	ChainID     Word
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
	Difficulty  Word
	Revision    Revision
}

// TransactionParameters contains information about the current transaction.
type TransactionParameters struct {
	Origin   Address
	GasPrice Value
}

// Result summarizes the result of a code execution.
type Result struct {
	Success   bool // false if the execution ended in a revert or error, true otherwise
	Output    Data
	GasLeft   Gas
	GasRefund Gas
}

// CallKind is an enum enabling the differentiation of the different types of
// recursive contract calls supported by the engine.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

// CallParameters are the arguments of one nested contract call or creation.
type CallParameters struct {
	Sender      Address
	Recipient   Address // < not relevant for Create and Create2
	Value       Value   // < ignored by static calls, considered to be 0
	Input       Data
	Gas         Gas
	Salt        Hash    // < only relevant for Create2
	CodeAddress Address // < only relevant for DelegateCall and CallCode
}

// CallResult is the outcome of one nested contract call or creation.
type CallResult struct {
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress Address // < only meaningful for Create and Create2
	Success        bool    // false if the execution ended in a revert or error, true otherwise
}
