// Command rhocalc explores the reduction behaviour of rho-calculus terms.
//
//	rhocalc run 'a!(0) | for(a -> x){ *x }'
//	rhocalc run --depth 4 --seed 42 --vars a,b
//	rhocalc generate --depth 2 --vars a
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
