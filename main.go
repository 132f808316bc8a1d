// Command ntdsinspect inspects typed table dumps of NTDS.dit databases.
package main

import (
	"os"

	"f0oster/ntdsinspect/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
