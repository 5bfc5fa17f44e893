package main

import (
	"log"

	"github.com/newhorizons/case-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
