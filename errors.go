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

// ConstError is an error type that can be used to define immutable error
// constants usable in switch statements and errors.Is checks.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}
