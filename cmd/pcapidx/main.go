/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/pcapidx/cmd/pcapidx/cmd"
)

func main() {
	cmd.Execute()
}
