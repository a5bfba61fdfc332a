package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// FFmpegRequirement describes the decoder binary.
func FFmpegRequirement(binary string) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Decodes media clips for fingerprinting",
	}
}

// CheckFFmpeg reports whether the configured ffmpeg binary can be executed.
// Paths containing a separator are checked directly; bare names resolve from
// PATH.
func CheckFFmpeg(binary string) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" || !strings.ContainsRune(binary, filepath.Separator) {
		return CheckBinaries([]Requirement{FFmpegRequirement(binary)})[0]
	}

	req := FFmpegRequirement(binary)
	result := Status{Name: req.Name, Command: binary, Description: req.Description}
	info, err := os.Stat(binary)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Detail = fmt.Sprintf("binary %q not found", binary)
	case err != nil:
		result.Detail = fmt.Sprintf("stat %q: %v", binary, err)
	case !isExecutable(info):
		result.Detail = fmt.Sprintf("%q is not executable", binary)
	default:
		result.Available = true
	}
	return result
}

// CheckWritableDir reports whether path, or the nearest existing parent that
// would hold it once created, accepts new files.
func CheckWritableDir(name, path string) Status {
	result := Status{Name: name, Command: path, Description: "Directory must be writable"}
	if strings.TrimSpace(path) == "" {
		result.Detail = "path not configured"
		return result
	}

	dir := path
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				result.Detail = fmt.Sprintf("%q is not a directory", dir)
				return result
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			result.Detail = fmt.Sprintf("stat %q: %v", dir, err)
			return result
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			result.Detail = fmt.Sprintf("no existing parent for %q", path)
			return result
		}
		dir = parent
	}

	probe, err := os.CreateTemp(dir, ".jingleid-probe-*")
	if err != nil {
		result.Detail = fmt.Sprintf("%q is not writable: %v", dir, err)
		return result
	}
	name = probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
