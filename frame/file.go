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
	"bufio"
	"io"
	"os"

	"github.com/tempolake/tempolake/numeric"
	"golang.org/x/sys/unix"
)

// EncodeFile writes the frame's buffer layout (see EncodeBuffer) to w
// through a single sequential buffered writer.
func EncodeFile[T numeric.Float](w io.Writer, f *Frame[T]) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(EncodeBuffer(f)); err != nil {
		return err
	}
	return bw.Flush()
}

// DecodeFile reads the entire stream into memory and owned-decodes
// it. For large files prefer DecodeFileMmap.
func DecodeFile[T numeric.Float](r io.Reader) (*Frame[T], error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBufferOwned[T](buf)
}

// DecodeFileMmap memory-maps path read-only and returns a borrowed
// frame directly over the mapping. The caller must call the returned
// closer to unmap once the frame is no longer in use.
func DecodeFileMmap[T numeric.Float](path string) (*Frame[T], io.Closer, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer fd.Close()

	info, err := fd.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() == 0 {
		return nil, nil, ErrTruncated
	}

	data, err := unix.Mmap(int(fd.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	fr, err := DecodeBufferZeroCopy[T](data)
	if err != nil {
		unix.Munmap(data)
		return nil, nil, err
	}
	return fr, &mmapCloser{data: data}, nil
}

type mmapCloser struct {
	data []byte
}

func (c *mmapCloser) Close() error {
	if c.data == nil {
		return nil
	}
	err := unix.Munmap(c.data)
	c.data = nil
	return err
}
