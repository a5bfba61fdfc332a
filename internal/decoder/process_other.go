//go:build !unix

package decoder

import "os/exec"

func configureProcess(*exec.Cmd) {}
