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

// Command tdfdump prints the shape and checksum of one or more .cfdf
// frame files, or of a frame read from stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/tempolake/tempolake/frame"
)

func dump(o *bufio.Writer, name string, r *bufio.Reader) error {
	f, err := frame.DecodeFile[float64](r)
	if err != nil {
		return err
	}
	sum := frame.Checksum(f)
	fmt.Fprintf(o, "%s: N=%d S=%d checksum=%x\n", name, f.N(), f.S(), sum)
	for _, c := range f.ColumnNames() {
		fmt.Fprintf(o, "  %s\n", c)
	}
	return nil
}

func main() {
	flag.Parse()
	o := bufio.NewWriter(os.Stdout)
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}
	for _, arg := range args {
		var in *os.File
		if arg == "-" {
			in = os.Stdin
		} else {
			var err error
			in, err = os.Open(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "can't open %q: %s\n", arg, err)
				os.Exit(1)
			}
		}
		err := dump(o, arg, bufio.NewReader(in))
		if in != os.Stdin {
			in.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "input %s: %s\n", arg, err)
			os.Exit(1)
		}
	}
	if err := o.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
