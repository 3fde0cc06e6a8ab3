// Command vm runs the register-based bytecode VM against a text
// bytecode file (spec §6): `vm [--binary] <entry_file>`.
package main

import (
	"flag"
	"fmt"
	"os"

	"paserati/pkg/driver"
)

func main() {
	binaryFlag := flag.Bool("binary", false, "load entry_file as binary bytecode (not supported by this build)")
	heapThreshold := flag.Int("heap-threshold", 1024, "allocations between automatic GC passes (0 disables automatic collection)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: vm [--binary] <entry_file>")
		os.Exit(64) // command line usage error
	}

	session := driver.New(*heapThreshold, os.Args[1:])
	if err := session.Interpret(flag.Arg(0), *binaryFlag); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(70) // internal software error / uncaught exception
	}
}
