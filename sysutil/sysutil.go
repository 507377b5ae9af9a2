package sysutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner abstracts external command execution so orchestration logic can be
// exercised without the real binaries present
type Runner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// ExecRunner shells out for real
type ExecRunner struct{}

// executes command on os
func (ExecRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// executes command on os, capturing combined output
func (ExecRunner) Output(name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.Command(name, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	output := stdout.String() + stderr.String()
	if err != nil {
		return output, fmt.Errorf("%s: %v", name, err)
	}
	return output, nil
}

// ProcessRunning reports whether a process with the exact name is active,
// used as a coarse mutual-exclusion signal between tools
func ProcessRunning(runner Runner, name string) bool {
	out, err := runner.Output("pgrep", "-x", name)
	if err != nil {
		// pgrep exits 1 when nothing matched
		return false
	}
	return strings.TrimSpace(out) != ""
}

func ValidateDirectoryString(directoryPathString string) error {
	// validate directory exists
	dirInfo, err := os.Stat(directoryPathString)

	// if dir DNE or is not dirtype, return err
	if err != nil || !dirInfo.IsDir() {
		return fmt.Errorf("target path %s does not exist or is not a directory", directoryPathString)
	}

	return nil
}

func ValidateDirectoryWriteable(directoryPathString string) error {
	// validate directory string before proceeding
	if err := ValidateDirectoryString(directoryPathString); err != nil {
		return err
	}

	// attempt to create temp local file
	testFilePath := filepath.Join(directoryPathString, ".homelab_testwrite.tmp")
	// create & remove file, return error if file creation fails
	testFile, err := os.Create(testFilePath)
	if err != nil {
		return fmt.Errorf("cannot write to destination directory %s: %v", directoryPathString, err)
	}
	testFile.Close()
	os.Remove(testFilePath)

	return nil
}

func GetDirectorySize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err // propagate error
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
