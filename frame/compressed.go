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
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/tempolake/tempolake/numeric"
)

// EncodeFileCompressed writes a zstd-compressed frame buffer to w.
// This is an additive, opt-in codec variant: it is not part of the
// §4.C byte layout invariant, and plain EncodeFile/DecodeFile remain
// the canonical format.
func EncodeFileCompressed[T numeric.Float](w io.Writer, f *Frame[T]) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(EncodeBuffer(f)); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// DecodeFileCompressed reads a zstd-compressed frame buffer from r.
func DecodeFileCompressed[T numeric.Float](r io.Reader) (*Frame[T], error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	buf, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	return DecodeBufferOwned[T](buf)
}
