// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package query is the random-access fetch planner: row-contiguous
// and column-contiguous decomposition of a temporal query into
// Fetcher tasks, NaN-filling of missing symbols, and the batched and
// grouped public entry points built on top.
package query

import (
	"strconv"

	"github.com/tempolake/tempolake/rawbytes"
)

// SymbolID is a fixed-width, zero-padded symbol identifier — the same
// representation Frame.Columns uses.
type SymbolID = [rawbytes.SymbolWidth]byte

// Symbol pads s into a SymbolID.
func Symbol(s string) SymbolID { return rawbytes.PadSymbol(s) }

// SymbolInt pads the decimal string form of n into a SymbolID; a
// convenience for backing stores (and tests) that use small integer
// symbol identifiers.
func SymbolInt(n int64) SymbolID { return Symbol(strconv.FormatInt(n, 10)) }

func symbolString(s SymbolID) string { return rawbytes.TrimPadded(s[:]) }

func symbolCompare(a, b SymbolID) int {
	as, bs := symbolString(a), symbolString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
