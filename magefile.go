//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func cgoEnv() []string {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	return append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
}

func goCmd(args ...string) *exec.Cmd {
	cmd := exec.Command("go", args...)
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func Build() error {
	mg.Deps(BuildG4me)
	fmt.Println("Compilation finished")
	return nil
}

// BuildG4me builds the g4me executable. HDF5 output needs CGO and the HDF5
// C library, located through CGO_CFLAGS and CGO_LDFLAGS.
func BuildG4me() error {
	fmt.Println("Building g4me executable...")
	return goCmd("build", "-o", "./bin/g4me", "./g4me").Run()
}

func Test() error {
	fmt.Println("Running tests...")
	return goCmd("test", "./...").Run()
}

// Vet runs go vet over every package.
func Vet() error {
	return goCmd("vet", "./...").Run()
}

func Clean() error {
	fmt.Println("Removing bin/")
	return os.RemoveAll("bin")
}
