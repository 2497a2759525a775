//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Tool compiles cmd/tmftool into bin/.
func (Build) Tool() error {
	out := filepath.Join("bin", "tmftool")
	_, err := executeCmd("go", withArgs("build", "-trimpath", "-o", out, "./cmd/tmftool"), withEnv("CGO_ENABLED=0"))
	return err
}

// All compiles every package.
func (Build) All() error {
	_, err := executeCmd("go", withArgs("build", "./..."))
	return err
}
