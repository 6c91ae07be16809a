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
	"bytes"
	"fmt"
	"testing"

	"github.com/corsa-chain/corsa"
	"github.com/holiman/uint256"
	"go.uber.org/mock/gomock"
)

// runCode executes the given code on a fresh interpreter for the newest
// revision, with a generous gas budget unless the parameters are adjusted by
// the modify callback.
func runCode(t *testing.T, code []byte, modify func(*corsa.Parameters)) corsa.Result {
	t.Helper()
	return runCodeOn(t, corsa.NewestRevision, code, modify)
}

func runCodeOn(t *testing.T, revision corsa.Revision, code []byte, modify func(*corsa.Parameters)) corsa.Result {
	t.Helper()
	interpreter, err := newInterpreter(revision)
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	params := corsa.Parameters{
		BlockParameters: corsa.BlockParameters{
			BlockNumber: 42,
			Timestamp:   1700000000,
			GasLimit:    1 << 30,
			Revision:    revision,
		},
		Gas:  1 << 20,
		Code: code,
	}
	if modify != nil {
		modify(&params)
	}
	result, err := interpreter.Run(params)
	if err != nil {
		t.Fatalf("failed to run code: %v", err)
	}
	return result
}

// returnTop terminates a code snippet by returning the top stack element as
// a 32-byte word.
var returnTop = []byte{
	byte(PUSH1), 0, byte(MSTORE),
	byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN),
}

func pushValue(value *uint256.Int) []byte {
	b := value.Bytes32()
	return append([]byte{byte(PUSH32)}, b[:]...)
}

func concat(chunks ...[]byte) []byte {
	res := []byte{}
	for _, chunk := range chunks {
		res = append(res, chunk...)
	}
	return res
}

func TestInterpreter_EmptyCodeSucceedsWithoutConsumingGas(t *testing.T) {
	interpreter, err := newInterpreter(corsa.NewestRevision)
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	result, err := interpreter.Run(corsa.Parameters{
		BlockParameters: corsa.BlockParameters{Revision: corsa.NewestRevision},
		Gas:             100,
	})
	if err != nil {
		t.Fatalf("failed to run empty code: %v", err)
	}
	if !result.Success {
		t.Errorf("empty code did not succeed")
	}
	if got, want := result.GasLeft, corsa.Gas(100); got != want {
		t.Errorf("unexpected remaining gas, got %d, want %d", got, want)
	}
}

func TestInterpreter_MismatchingRevisionIsRejected(t *testing.T) {
	interpreter, err := newInterpreter(corsa.R01_Genesis)
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	_, err = interpreter.Run(corsa.Parameters{
		BlockParameters: corsa.BlockParameters{Revision: corsa.R02_Meridian},
		Code:            []byte{byte(STOP)},
	})
	if err == nil {
		t.Errorf("expected an error for a mismatching revision")
	}
}

func TestInterpreter_ComputationalInstructions(t *testing.T) {
	minusOne := new(uint256.Int).SetAllOne()
	minusFour := new(uint256.Int).Sub(uint256.NewInt(0), uint256.NewInt(4))

	tests := map[string]struct {
		code []byte
		want *uint256.Int
	}{
		"add": {
			code: concat(pushValue(uint256.NewInt(2)), pushValue(uint256.NewInt(3)), []byte{byte(ADD)}),
			want: uint256.NewInt(5),
		},
		"add with wrap-around": {
			code: concat(pushValue(uint256.NewInt(2)), pushValue(minusOne), []byte{byte(ADD)}),
			want: uint256.NewInt(1),
		},
		"sub": {
			code: concat(pushValue(uint256.NewInt(3)), pushValue(uint256.NewInt(5)), []byte{byte(SUB)}),
			want: uint256.NewInt(2),
		},
		"mul": {
			code: concat(pushValue(uint256.NewInt(6)), pushValue(uint256.NewInt(7)), []byte{byte(MUL)}),
			want: uint256.NewInt(42),
		},
		"div": {
			code: concat(pushValue(uint256.NewInt(3)), pushValue(uint256.NewInt(14)), []byte{byte(DIV)}),
			want: uint256.NewInt(4),
		},
		"div by zero": {
			code: concat(pushValue(uint256.NewInt(0)), pushValue(uint256.NewInt(14)), []byte{byte(DIV)}),
			want: uint256.NewInt(0),
		},
		"sdiv": {
			code: concat(pushValue(uint256.NewInt(2)), pushValue(minusFour), []byte{byte(SDIV)}),
			want: new(uint256.Int).Sub(uint256.NewInt(0), uint256.NewInt(2)),
		},
		"mod": {
			code: concat(pushValue(uint256.NewInt(5)), pushValue(uint256.NewInt(14)), []byte{byte(MOD)}),
			want: uint256.NewInt(4),
		},
		"smod": {
			code: concat(pushValue(uint256.NewInt(3)), pushValue(minusFour), []byte{byte(SMOD)}),
			want: minusOne,
		},
		"addmod": {
			code: concat(pushValue(uint256.NewInt(8)), pushValue(uint256.NewInt(5)), pushValue(uint256.NewInt(6)), []byte{byte(ADDMOD)}),
			want: uint256.NewInt(3),
		},
		"mulmod": {
			code: concat(pushValue(uint256.NewInt(8)), pushValue(uint256.NewInt(5)), pushValue(uint256.NewInt(6)), []byte{byte(MULMOD)}),
			want: uint256.NewInt(6),
		},
		"exp": {
			code: concat(pushValue(uint256.NewInt(10)), pushValue(uint256.NewInt(2)), []byte{byte(EXP)}),
			want: uint256.NewInt(1024),
		},
		"signextend": {
			code: concat(pushValue(uint256.NewInt(0xff)), pushValue(uint256.NewInt(0)), []byte{byte(SIGNEXTEND)}),
			want: minusOne,
		},
		"lt": {
			code: concat(pushValue(uint256.NewInt(5)), pushValue(uint256.NewInt(3)), []byte{byte(LT)}),
			want: uint256.NewInt(1),
		},
		"gt": {
			code: concat(pushValue(uint256.NewInt(5)), pushValue(uint256.NewInt(3)), []byte{byte(GT)}),
			want: uint256.NewInt(0),
		},
		"slt": {
			code: concat(pushValue(uint256.NewInt(3)), pushValue(minusFour), []byte{byte(SLT)}),
			want: uint256.NewInt(1),
		},
		"sgt": {
			code: concat(pushValue(minusFour), pushValue(uint256.NewInt(3)), []byte{byte(SGT)}),
			want: uint256.NewInt(1),
		},
		"eq": {
			code: concat(pushValue(uint256.NewInt(7)), pushValue(uint256.NewInt(7)), []byte{byte(EQ)}),
			want: uint256.NewInt(1),
		},
		"iszero": {
			code: concat(pushValue(uint256.NewInt(0)), []byte{byte(ISZERO)}),
			want: uint256.NewInt(1),
		},
		"and": {
			code: concat(pushValue(uint256.NewInt(0b1100)), pushValue(uint256.NewInt(0b1010)), []byte{byte(AND)}),
			want: uint256.NewInt(0b1000),
		},
		"or": {
			code: concat(pushValue(uint256.NewInt(0b1100)), pushValue(uint256.NewInt(0b1010)), []byte{byte(OR)}),
			want: uint256.NewInt(0b1110),
		},
		"xor": {
			code: concat(pushValue(uint256.NewInt(0b1100)), pushValue(uint256.NewInt(0b1010)), []byte{byte(XOR)}),
			want: uint256.NewInt(0b0110),
		},
		"not": {
			code: concat(pushValue(minusOne), []byte{byte(NOT)}),
			want: uint256.NewInt(0),
		},
		"byte": {
			code: concat(pushValue(uint256.NewInt(0xAABB)), pushValue(uint256.NewInt(31)), []byte{byte(BYTE)}),
			want: uint256.NewInt(0xBB),
		},
		"shl": {
			code: concat(pushValue(uint256.NewInt(1)), pushValue(uint256.NewInt(4)), []byte{byte(SHL)}),
			want: uint256.NewInt(16),
		},
		"shl overflowing shift": {
			code: concat(pushValue(uint256.NewInt(1)), pushValue(uint256.NewInt(256)), []byte{byte(SHL)}),
			want: uint256.NewInt(0),
		},
		"shr": {
			code: concat(pushValue(uint256.NewInt(16)), pushValue(uint256.NewInt(4)), []byte{byte(SHR)}),
			want: uint256.NewInt(1),
		},
		"sar of negative value": {
			code: concat(pushValue(minusFour), pushValue(uint256.NewInt(1)), []byte{byte(SAR)}),
			want: new(uint256.Int).Sub(uint256.NewInt(0), uint256.NewInt(2)),
		},
		"sar with overflowing shift": {
			code: concat(pushValue(minusOne), pushValue(uint256.NewInt(300)), []byte{byte(SAR)}),
			want: minusOne,
		},
		"dup": {
			code: concat(pushValue(uint256.NewInt(3)), pushValue(uint256.NewInt(8)), []byte{byte(DUP2), byte(ADD)}),
			want: uint256.NewInt(11),
		},
		"swap": {
			code: concat(pushValue(uint256.NewInt(8)), pushValue(uint256.NewInt(3)), []byte{byte(SWAP1), byte(SUB)}),
			want: uint256.NewInt(5),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, concat(test.code, returnTop), nil)
			if !result.Success {
				t.Fatalf("execution failed")
			}
			want := test.want.Bytes32()
			if !bytes.Equal(result.Output, want[:]) {
				t.Errorf("unexpected result, got %x, want %x", result.Output, want)
			}
		})
	}
}

func TestInterpreter_ProgramCounterIsObservable(t *testing.T) {
	// The PC instruction reports the position of the PC instruction itself.
	code := concat([]byte{byte(JUMPDEST), byte(PC)}, returnTop)
	result := runCode(t, code, nil)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := uint256.NewInt(1).Bytes32()
	if !bytes.Equal(result.Output, want[:]) {
		t.Errorf("unexpected result, got %x, want %x", result.Output, want)
	}
}

func TestInterpreter_CallDataLoadUsesBigEndianValueOfAvailableBytes(t *testing.T) {
	tests := map[string]struct {
		input  []byte
		offset byte
		want   *uint256.Int
	}{
		"single byte input":   {input: []byte{0x01}, offset: 0, want: uint256.NewInt(1)},
		"short tail":          {input: []byte{0x12, 0x34, 0x56}, offset: 1, want: uint256.NewInt(0x3456)},
		"offset beyond input": {input: []byte{0x01}, offset: 5, want: uint256.NewInt(0)},
		"full word":           {input: bytes.Repeat([]byte{0xff}, 40), offset: 0, want: new(uint256.Int).SetAllOne()},
		"empty input":         {input: nil, offset: 0, want: uint256.NewInt(0)},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			code := concat([]byte{byte(PUSH1), test.offset, byte(CALLDATALOAD)}, returnTop)
			result := runCode(t, code, func(params *corsa.Parameters) {
				params.Input = test.input
			})
			if !result.Success {
				t.Fatalf("execution failed")
			}
			want := test.want.Bytes32()
			if !bytes.Equal(result.Output, want[:]) {
				t.Errorf("unexpected result, got %x, want %x", result.Output, want)
			}
		})
	}
}

func TestInterpreter_CallDataSizeReportsInputLength(t *testing.T) {
	code := concat([]byte{byte(CALLDATASIZE)}, returnTop)
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Input = []byte{1, 2, 3, 4, 5}
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := uint256.NewInt(5).Bytes32()
	if !bytes.Equal(result.Output, want[:]) {
		t.Errorf("unexpected result, got %x, want %x", result.Output, want)
	}
}

func TestInterpreter_CodeCopyCopiesCodeAndChargesPerWord(t *testing.T) {
	code := []byte{
		byte(PUSH1), 4, // size
		byte(PUSH1), 0, // code offset
		byte(PUSH1), 0, // memory offset
		byte(CODECOPY),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN),
	}
	result := runCode(t, code, nil)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := make([]byte, 32)
	copy(want, code[:4])
	if !bytes.Equal(result.Output, want) {
		t.Errorf("unexpected memory content, got %x, want %x", result.Output, want)
	}

	// 5 pushes, the copy instruction, one copied word, and one memory word.
	wantGasUsed := corsa.Gas(5*3 + 3 + 3 + 3)
	gasUsed := corsa.Gas(1<<20) - result.GasLeft
	if gasUsed != wantGasUsed {
		t.Errorf("unexpected gas usage, got %d, want %d", gasUsed, wantGasUsed)
	}
}

func TestInterpreter_CopyInstructionsZeroFillBeyondTheSource(t *testing.T) {
	// Copies 8 bytes starting at code offset 2 of a 4-byte source window
	// reaching past the end of the code.
	code := []byte{
		byte(PUSH1), 8, // size
		byte(PUSH1), 9, // code offset near the end
		byte(PUSH1), 0, // memory offset
		byte(CODECOPY),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN), // ends at byte 11
	}
	result := runCode(t, code, nil)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := make([]byte, 32)
	copy(want, code[9:])
	if !bytes.Equal(result.Output, want) {
		t.Errorf("copy did not zero-fill, got %x, want %x", result.Output, want)
	}
}

func TestInterpreter_ExtCodeSizeOfAbsentAccountIsZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := corsa.NewMockRunContext(ctrl)
	context.EXPECT().GetCodeSize(gomock.Any()).Return(0)

	code := concat([]byte{byte(PUSH1), 0x42, byte(EXTCODESIZE)}, returnTop)
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Context = context
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := make([]byte, 32)
	if !bytes.Equal(result.Output, want) {
		t.Errorf("unexpected code size, got %x, want zero", result.Output)
	}
}

func TestInterpreter_UndefinedInstructionsAbortExecution(t *testing.T) {
	for _, op := range []byte{0x0c, 0x21, 0x4b, 0xef, byte(INVALID)} {
		result := runCode(t, []byte{op}, nil)
		if result.Success {
			t.Errorf("undefined instruction 0x%02x did not fail", op)
		}
		if result.GasLeft != 0 {
			t.Errorf("failed execution left gas, got %d, want 0", result.GasLeft)
		}
	}
}

func TestInterpreter_InstructionsMissingInOlderRevisionsAreInvalid(t *testing.T) {
	newOnly := []OpCode{
		SHL, SHR, SAR, RETURNDATASIZE, RETURNDATACOPY,
		DELEGATECALL, CREATE2, STATICCALL, REVERT,
	}
	for _, op := range newOnly {
		code := concat(
			pushValue(uint256.NewInt(0)), pushValue(uint256.NewInt(0)),
			pushValue(uint256.NewInt(0)), pushValue(uint256.NewInt(0)),
			pushValue(uint256.NewInt(0)), pushValue(uint256.NewInt(0)),
			pushValue(uint256.NewInt(0)),
			[]byte{byte(op)},
		)
		if result := runCodeOn(t, corsa.R01_Genesis, code, nil); result.Success {
			t.Errorf("%v did not fail on the oldest revision", op)
		}
	}
}

func TestInterpreter_JumpsRequireValidDestinations(t *testing.T) {
	tests := map[string]struct {
		code    []byte
		success bool
	}{
		"valid jump": {
			code:    []byte{byte(PUSH1), 4, byte(JUMP), byte(INVALID), byte(JUMPDEST), byte(STOP)},
			success: true,
		},
		"jump into push payload": {
			code:    []byte{byte(PUSH1), 4, byte(JUMP), byte(PUSH1), byte(JUMPDEST), byte(STOP)},
			success: false,
		},
		"jump beyond the code": {
			code:    []byte{byte(PUSH1), 42, byte(JUMP)},
			success: false,
		},
		"jump to non-jumpdest": {
			code:    []byte{byte(PUSH1), 3, byte(JUMP), byte(STOP)},
			success: false,
		},
		"conditional jump not taken": {
			code:    []byte{byte(PUSH1), 0, byte(PUSH1), 42, byte(JUMPI), byte(STOP)},
			success: true,
		},
		"conditional jump taken": {
			code:    []byte{byte(PUSH1), 1, byte(PUSH1), 6, byte(JUMPI), byte(INVALID), byte(JUMPDEST), byte(STOP)},
			success: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, test.code, nil)
			if result.Success != test.success {
				t.Errorf("unexpected outcome, got success=%t, want success=%t", result.Success, test.success)
			}
		})
	}
}

func TestInterpreter_OutOfGasConsumesEverything(t *testing.T) {
	code := concat(pushValue(uint256.NewInt(1)), pushValue(uint256.NewInt(2)), []byte{byte(ADD)})
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Gas = 7 // two pushes alone cost 6, the add does not fit
	})
	if result.Success {
		t.Fatalf("expected execution to fail")
	}
	if result.GasLeft != 0 {
		t.Errorf("failed execution left gas, got %d, want 0", result.GasLeft)
	}
}

func TestInterpreter_StackBoundsAreEnforced(t *testing.T) {
	t.Run("underflow", func(t *testing.T) {
		if result := runCode(t, []byte{byte(ADD)}, nil); result.Success {
			t.Errorf("add on an empty stack did not fail")
		}
	})
	t.Run("overflow", func(t *testing.T) {
		code := bytes.Repeat([]byte{byte(PUSH1), 0}, maxStackSize+1)
		if result := runCode(t, code, nil); result.Success {
			t.Errorf("pushing beyond the stack limit did not fail")
		}
	})
}

func TestInterpreter_StaticContextForbidsMutations(t *testing.T) {
	zero := pushValue(uint256.NewInt(0))
	tests := map[string][]byte{
		"sstore":          concat(zero, zero, []byte{byte(SSTORE)}),
		"log0":            concat(zero, zero, []byte{byte(LOG0)}),
		"create":          concat(zero, zero, zero, []byte{byte(CREATE)}),
		"selfdestruct":    concat(zero, []byte{byte(SELFDESTRUCT)}),
		"call with value": concat(zero, zero, zero, zero, pushValue(uint256.NewInt(1)), zero, zero, []byte{byte(CALL)}),
	}

	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, code, func(params *corsa.Parameters) {
				params.Static = true
			})
			if result.Success {
				t.Errorf("state mutation in a static context did not fail")
			}
		})
	}
}

func TestInterpreter_SStorePricesTheTransition(t *testing.T) {
	zeroWord := corsa.Word{}
	oneWord := corsa.Word{31: 1}

	tests := map[string]struct {
		current    corsa.Word
		assigned   corsa.Word
		wantCost   corsa.Gas
		wantRefund corsa.Gas
	}{
		"create slot":  {current: zeroWord, assigned: oneWord, wantCost: 20000},
		"update slot":  {current: oneWord, assigned: oneWord, wantCost: 5000},
		"clear slot":   {current: oneWord, assigned: zeroWord, wantCost: 5000, wantRefund: 15000},
		"noop on zero": {current: zeroWord, assigned: zeroWord, wantCost: 5000},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := corsa.NewMockRunContext(ctrl)
			context.EXPECT().GetStorage(gomock.Any(), gomock.Any()).Return(test.current)
			context.EXPECT().SetStorage(gomock.Any(), gomock.Any(), test.assigned)

			value := new(uint256.Int).SetBytes32(test.assigned[:])
			code := concat(pushValue(value), pushValue(uint256.NewInt(1)), []byte{byte(SSTORE), byte(STOP)})

			budget := corsa.Gas(1 << 20)
			result := runCode(t, code, func(params *corsa.Parameters) {
				params.Context = context
				params.Gas = budget
			})
			if !result.Success {
				t.Fatalf("execution failed")
			}
			wantGasUsed := corsa.Gas(2*3) + test.wantCost
			if got := budget - result.GasLeft; got != wantGasUsed {
				t.Errorf("unexpected gas usage, got %d, want %d", got, wantGasUsed)
			}
			if got := result.GasRefund; got != test.wantRefund {
				t.Errorf("unexpected refund, got %d, want %d", got, test.wantRefund)
			}
		})
	}
}

func TestInterpreter_RevertReturnsDataAndRemainingGas(t *testing.T) {
	code := concat(
		pushValue(uint256.NewInt(42)),
		[]byte{byte(PUSH1), 0, byte(MSTORE)},
		[]byte{byte(PUSH1), 32, byte(PUSH1), 0, byte(REVERT)},
	)
	result := runCode(t, code, nil)
	if result.Success {
		t.Fatalf("revert did not mark the execution as unsuccessful")
	}
	want := uint256.NewInt(42).Bytes32()
	if !bytes.Equal(result.Output, want[:]) {
		t.Errorf("unexpected revert reason, got %x, want %x", result.Output, want)
	}
	if result.GasLeft == 0 {
		t.Errorf("revert consumed all gas")
	}
	if result.GasRefund != 0 {
		t.Errorf("revert paid out refunds, got %d", result.GasRefund)
	}
}

func TestInterpreter_CallForwardsAllButOneSixtyFourth(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := corsa.NewMockRunContext(ctrl)

	var forwarded corsa.Gas
	context.EXPECT().Call(corsa.Call, gomock.Any()).DoAndReturn(
		func(_ corsa.CallKind, params corsa.CallParameters) (corsa.CallResult, error) {
			forwarded = params.Gas
			return corsa.CallResult{Success: true, GasLeft: params.Gas}, nil
		})

	zero := []byte{byte(PUSH1), 0}
	code := concat(
		zero, zero, zero, zero, zero, // ret/args ranges and value
		[]byte{byte(PUSH1), 0x42}, // target address
		pushValue(new(uint256.Int).SetAllOne()), // request more than available
		[]byte{byte(CALL), byte(STOP)},
	)
	budget := corsa.Gas(64_000 + 7*3 + 700) // 7 pushes, the call, 64000 to forward
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Context = context
		params.Gas = budget
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}

	// After the pushes and the static call costs, 64000 gas remain, of
	// which 1/64 is retained.
	if got, want := forwarded, corsa.Gas(63_000); got != want {
		t.Errorf("unexpected forwarded gas, got %d, want %d", got, want)
	}
	if got, want := result.GasLeft, corsa.Gas(64_000); got != want {
		t.Errorf("unexpected remaining gas, got %d, want %d", got, want)
	}
}

func TestInterpreter_FailedCallPushesZeroAndExecutionContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := corsa.NewMockRunContext(ctrl)
	context.EXPECT().AccountExists(gomock.Any()).Return(true)
	context.EXPECT().Call(corsa.Call, gomock.Any()).Return(corsa.CallResult{
		Success: false,
		GasLeft: 0,
	}, nil)

	zero := []byte{byte(PUSH1), 0}
	code := concat(
		zero, zero, zero, zero,
		[]byte{byte(PUSH1), 1},    // value exceeding the sender's balance
		[]byte{byte(PUSH1), 0x42}, // target address
		[]byte{byte(PUSH1), 0},    // gas
		[]byte{byte(CALL)},
		returnTop,
	)
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Context = context
	})
	if !result.Success {
		t.Fatalf("the failed child call must not fail the parent")
	}
	want := make([]byte, 32)
	if !bytes.Equal(result.Output, want) {
		t.Errorf("unexpected call result, got %x, want 0", result.Output)
	}
}

func TestInterpreter_ChildCallOutputFeedsReturnDataInstructions(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := corsa.NewMockRunContext(ctrl)
	context.EXPECT().Call(corsa.StaticCall, gomock.Any()).Return(corsa.CallResult{
		Success: true,
		Output:  []byte{0xaa, 0xbb},
	}, nil)

	zero := []byte{byte(PUSH1), 0}
	code := concat(
		zero, zero, zero, zero, // ret/args ranges
		[]byte{byte(PUSH1), 0x42}, // target address
		zero,                      // gas
		[]byte{byte(STATICCALL), byte(POP)},
		[]byte{byte(RETURNDATASIZE)},
		returnTop,
	)
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Context = context
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := uint256.NewInt(2).Bytes32()
	if !bytes.Equal(result.Output, want[:]) {
		t.Errorf("unexpected return data size, got %x, want %x", result.Output, want)
	}
}

func TestInterpreter_ReturnDataCopyBeyondTheBufferFails(t *testing.T) {
	code := []byte{
		byte(PUSH1), 1, // size
		byte(PUSH1), 0, // data offset
		byte(PUSH1), 0, // memory offset
		byte(RETURNDATACOPY), // no prior call, buffer is empty
	}
	if result := runCode(t, code, nil); result.Success {
		t.Errorf("out-of-bounds return data access did not fail")
	}
}

func TestInterpreter_LogsAreEmittedWithTopicsAndData(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := corsa.NewMockRunContext(ctrl)

	recipient := corsa.Address{0x42}
	var emitted corsa.Log
	context.EXPECT().EmitLog(gomock.Any()).Do(func(log corsa.Log) {
		emitted = log
	})

	code := concat(
		pushValue(uint256.NewInt(42)),
		[]byte{byte(PUSH1), 0, byte(MSTORE)},
		pushValue(uint256.NewInt(0x0102)), // topic
		[]byte{byte(PUSH1), 32, byte(PUSH1), 0, byte(LOG1), byte(STOP)},
	)
	result := runCode(t, code, func(params *corsa.Parameters) {
		params.Context = context
		params.Recipient = recipient
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if got, want := emitted.Address, recipient; got != want {
		t.Errorf("unexpected log address, got %x, want %x", got, want)
	}
	if got, want := len(emitted.Topics), 1; got != want {
		t.Fatalf("unexpected number of topics, got %d, want %d", got, want)
	}
	wantTopic := corsa.Hash{30: 0x01, 31: 0x02}
	if emitted.Topics[0] != wantTopic {
		t.Errorf("unexpected topic, got %x, want %x", emitted.Topics[0], wantTopic)
	}
	wantData := uint256.NewInt(42).Bytes32()
	if !bytes.Equal(emitted.Data, wantData[:]) {
		t.Errorf("unexpected log data, got %x, want %x", emitted.Data, wantData)
	}
}

func TestInterpreter_SelfDestructRefundsOnlyOnce(t *testing.T) {
	tests := map[string]struct {
		firstDestruction bool
		wantRefund       corsa.Gas
	}{
		"first destruction":  {firstDestruction: true, wantRefund: 24000},
		"repeat destruction": {firstDestruction: false, wantRefund: 0},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := corsa.NewMockRunContext(ctrl)
			beneficiary := corsa.Address{19: 0x42}
			recipient := corsa.Address{0x43}
			context.EXPECT().SelfDestruct(recipient, beneficiary).Return(test.firstDestruction)

			code := concat(pushValue(uint256.NewInt(0x42)), []byte{byte(SELFDESTRUCT)})
			result := runCode(t, code, func(params *corsa.Parameters) {
				params.Context = context
				params.Recipient = recipient
			})
			if !result.Success {
				t.Fatalf("execution failed")
			}
			if got := result.GasRefund; got != test.wantRefund {
				t.Errorf("unexpected refund, got %d, want %d", got, test.wantRefund)
			}
		})
	}
}

func TestInterpreter_Sha3HashesMemoryContent(t *testing.T) {
	// keccak256 of 32 zero bytes.
	want := "290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563"
	code := concat(
		[]byte{byte(PUSH1), 32, byte(PUSH1), 0, byte(SHA3)},
		returnTop,
	)
	result := runCode(t, code, nil)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if got := fmt.Sprintf("%x", result.Output); got != want {
		t.Errorf("unexpected hash, got %s, want %s", got, want)
	}
}

func benchmarkCountdown(b *testing.B, iterations int) {
	// A tight decrement loop ending in a RETURN of the final counter value.
	code := concat([]byte{
		byte(PUSH2), byte(iterations >> 8), byte(iterations),
		byte(JUMPDEST), // offset 3
		byte(PUSH1), 1,
		byte(SWAP1),
		byte(SUB),
		byte(DUP1),
		byte(PUSH1), 3,
		byte(JUMPI),
	}, returnTop)

	interpreter, err := newInterpreter(corsa.NewestRevision)
	if err != nil {
		b.Fatalf("failed to create interpreter: %v", err)
	}
	params := corsa.Parameters{
		BlockParameters: corsa.BlockParameters{Revision: corsa.NewestRevision},
		Gas:             1 << 30,
		Code:            code,
	}

	want := make([]byte, 32)
	for i := 0; i < b.N; i++ {
		result, err := interpreter.Run(params)
		if err != nil {
			b.Fatalf("failed to run code: %v", err)
		}
		if !result.Success {
			b.Fatalf("execution failed")
		}
		if !bytes.Equal(result.Output, want) {
			b.Fatalf("unexpected result, got %x, want %x", result.Output, want)
		}
	}
}

func BenchmarkInterpreter_Countdown10(b *testing.B) {
	benchmarkCountdown(b, 10)
}

func BenchmarkInterpreter_Countdown1000(b *testing.B) {
	benchmarkCountdown(b, 1000)
}

func TestInterpreter_BlockHashServesOnlyTheRecentAncestorWindow(t *testing.T) {
	hash := corsa.Hash{0x01, 0x02}
	tests := map[string]struct {
		number uint64
		want   corsa.Hash
	}{
		"parent":            {number: 299, want: hash},
		"oldest ancestor":   {number: 44, want: hash},
		"beyond the window": {number: 43, want: corsa.Hash{}},
		"current block":     {number: 300, want: corsa.Hash{}},
		"future block":      {number: 301, want: corsa.Hash{}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := corsa.NewMockRunContext(ctrl)
			if test.want != (corsa.Hash{}) {
				context.EXPECT().GetBlockHash(int64(test.number)).Return(hash)
			}

			code := concat(
				pushValue(uint256.NewInt(test.number)),
				[]byte{byte(BLOCKHASH)},
				returnTop,
			)
			result := runCode(t, code, func(params *corsa.Parameters) {
				params.Context = context
				params.BlockNumber = 300
			})
			if !result.Success {
				t.Fatalf("execution failed")
			}
			if !bytes.Equal(result.Output, test.want[:]) {
				t.Errorf("unexpected hash, got %x, want %x", result.Output, test.want)
			}
		})
	}
}
