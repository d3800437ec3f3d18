// Package main is the scapes command itself.
package main

import (
	"log"
	"os"

	"github.com/drivescene/scapes/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
