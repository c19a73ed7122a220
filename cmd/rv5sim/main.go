// Package main provides the rv5sim command line.
//
// rv5sim is a cycle-level simulator of a 5-stage pipelined RV32I core.
//
//	rv5sim run program.hex 40
//	rv5sim run --no-forwarding --format table program.hex 40
//	rv5sim bench
package main

import (
	"errors"
	"fmt"
	"os"
)

// exitError carries the process exit status of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode maps a command error to a process exit status.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
