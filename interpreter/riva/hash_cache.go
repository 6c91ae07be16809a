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
	"github.com/corsa-chain/corsa"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
)

// sha3Cache memoizes keccak hashes for inputs of size 32 and 64, which are
// the vast majority of values hashed by the SHA3 instruction. Inputs of
// other sizes are hashed on demand without caching. The cache is
// thread-safe and shared between interpreter instances.
type sha3Cache struct {
	cache32 *lru.Cache[[32]byte, corsa.Hash]
	cache64 *lru.Cache[[64]byte, corsa.Hash]
}

func newSha3Cache(capacity32, capacity64 int) *sha3Cache {
	cache32, err := lru.New[[32]byte, corsa.Hash](capacity32)
	if err != nil {
		panic(err) // only fails for non-positive capacities
	}
	cache64, err := lru.New[[64]byte, corsa.Hash](capacity64)
	if err != nil {
		panic(err)
	}
	return &sha3Cache{cache32: cache32, cache64: cache64}
}

// hash fetches a cached hash or computes the hash of the provided data.
func (c *sha3Cache) hash(data []byte) corsa.Hash {
	if len(data) == 32 {
		key := [32]byte(data)
		if hash, found := c.cache32.Get(key); found {
			return hash
		}
		hash := corsa.Hash(crypto.Keccak256(data))
		c.cache32.Add(key, hash)
		return hash
	}
	if len(data) == 64 {
		key := [64]byte(data)
		if hash, found := c.cache64.Get(key); found {
			return hash
		}
		hash := corsa.Hash(crypto.Keccak256(data))
		c.cache64.Add(key, hash)
		return hash
	}
	return corsa.Hash(crypto.Keccak256(data))
}

var hashCache = newSha3Cache(1<<12, 1<<12)
