package main

import (
	"bufio"
	"bytes"
	"os/exec"
	"strings"

	"github.com/grailbio/sambamba/pileup"
)

// probeTool resolves name (or override, if non-empty) via PATH and verifies
// it against the version-gate convention described in spec.md §6: run with
// no arguments, expect exit status 1, and expect the third stdout line to
// begin with "Version:" and not "Version: 0.".
//
// Grounded on brentp-smoove's lumpy-smoother.go, which gates on external
// tool presence via exec.LookPath before ever spawning a pipeline job.
func probeTool(override, name string) (string, error) {
	path := override
	if path == "" || path == name {
		resolved, err := exec.LookPath(name)
		if err != nil {
			return "", &pileup.Error{Kind: pileup.ToolMissing, Message: name + " not found on PATH", Cause: err}
		}
		path = resolved
	}

	cmd := exec.Command(path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	runErr := cmd.Run()

	exitErr, ok := runErr.(*exec.ExitError)
	if runErr == nil || !ok || exitErr.ExitCode() != 1 {
		return "", &pileup.Error{Kind: pileup.ToolMissing, Message: path + ": expected exit status 1 on no-args probe", Cause: runErr}
	}

	scanner := bufio.NewScanner(&stdout)
	var line string
	for i := 0; i < 3 && scanner.Scan(); i++ {
		line = scanner.Text()
	}
	if !strings.HasPrefix(line, "Version:") {
		return "", &pileup.Error{Kind: pileup.ToolMissing, Message: path + ": no Version: line found in usage output"}
	}
	if strings.HasPrefix(line, "Version: 0.") {
		return "", &pileup.Error{Kind: pileup.ToolMissing, Message: path + ": versions 0.* of this tool are unsupported (" + line + ")"}
	}
	return path, nil
}
