package main

import (
	"log"

	"github.com/pmadusud/salesagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
