//go:build tools

// Package tools pins developer tooling in go.mod so `go mod tidy` doesn't
// drop it. Nothing here is part of the build.
package tools

import (
	_ "github.com/go-gremlins/gremlins/cmd/gremlins"
)
