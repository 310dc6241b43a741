package main

import (
	"os"

	"github.com/ChrisDHolman/EDR-Proof/cmd"
)

// main function remains to call Execute.
func main() {
	cmd.Execute(os.Args[1:])
}
