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

package frame

import (
	"golang.org/x/crypto/blake2b"

	"github.com/tempolake/tempolake/numeric"
)

// Checksum returns a content fingerprint of the frame's encoded form,
// suitable for detecting corruption of files at rest or in transit.
// It is not part of the wire layout; callers that want integrity
// checking store it alongside the file.
func Checksum[T numeric.Float](f *Frame[T]) [32]byte {
	return blake2b.Sum256(EncodeBuffer(f))
}
