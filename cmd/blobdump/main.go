// Command blobdump decodes a saved xshin blob and prints it with every decode diagnostic.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "blobdump:", err)
		os.Exit(1)
	}
}
