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

import (
	"encoding/json"
	"fmt"
)

// Revision is an enumeration of the protocol revisions supported by this
// engine. A revision selects an opcode table and a gas schedule; it is plain
// configuration, picked once when an interpreter is constructed.
type Revision int

const (
	// R01_Genesis covers the initial instruction set: no delegate or static
	// calls, no revert, no return-data introspection.
	R01_Genesis Revision = iota
	// R02_Meridian adds DELEGATECALL, STATICCALL, REVERT, RETURNDATASIZE,
	// RETURNDATACOPY, the shift instructions, and CREATE2, and re-prices the
	// state-access instructions.
	R02_Meridian
	numRevisions int = iota
)

// NewestRevision is the most recent revision supported by this engine.
const NewestRevision = R02_Meridian

func (r Revision) String() string {
	switch r {
	case R01_Genesis:
		return "Genesis"
	case R02_Meridian:
		return "Meridian"
	default:
		return fmt.Sprintf("Revision(%d)", r)
	}
}

func (r Revision) MarshalJSON() ([]byte, error) {
	if r < 0 || int(r) >= numRevisions {
		return nil, fmt.Errorf("unknown revision: %d", r)
	}
	return json.Marshal(r.String())
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Genesis":
		*r = R01_Genesis
	case "Meridian":
		*r = R02_Meridian
	default:
		return fmt.Errorf("unknown revision: %s", s)
	}
	return nil
}
