package main

import (
	"os"

	"tenantsync/cmd/synctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
