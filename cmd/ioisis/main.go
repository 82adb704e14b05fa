/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/bireme/ioisis-go/cmd/ioisis/cmd"

func main() {
	cmd.Execute()
}
