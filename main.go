// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the md-qa command-line client.
package main

import (
	"mdqa/cli/cmd"
)

func main() {
	cmd.Execute()
}
