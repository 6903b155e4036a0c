// Package deps checks for the external programs hyprscribe shells out to.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Dependency is an external program and the flag that prints its version.
type Dependency struct {
	Name        string
	Purpose     string
	VersionFlag string
	Required    bool
}

var (
	PwRecord   = Dependency{Name: "pw-record", Purpose: "microphone capture (PipeWire)", VersionFlag: "--version", Required: true}
	WhisperCli = Dependency{Name: "whisper-cli", Purpose: "whisper-cpp engine", VersionFlag: "--version"}
	NotifySend = Dependency{Name: "notify-send", Purpose: "desktop notifications", VersionFlag: "--version"}
	WlCopy     = Dependency{Name: "wl-copy", Purpose: "transcript --copy", VersionFlag: "--version"}
	Wtype      = Dependency{Name: "wtype", Purpose: "transcript --type"}
)

var lookPath = exec.LookPath

// Check looks d up in PATH and reads the first line of its version output.
func Check(d Dependency) Status {
	path, err := lookPath(d.Name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if d.VersionFlag == "" {
		return status
	}

	output, err := exec.Command(path, d.VersionFlag).CombinedOutput()
	if err == nil {
		line, _, _ := strings.Cut(string(output), "\n")
		status.Version = strings.TrimSpace(line)
	}
	return status
}

// For returns the programs needed with the given engine and notification type. Engine
// or notification specific programs are marked required when that option is selected.
func For(engine, notificationType string) []Dependency {
	whisper := WhisperCli
	whisper.Required = engine == "whisper-cpp"
	notify := NotifySend
	notify.Required = notificationType == "desktop"
	return []Dependency{PwRecord, whisper, notify, WlCopy, Wtype}
}

// CheckWhisperCli checks if whisper-cli is installed and returns its status
func CheckWhisperCli() Status {
	return Check(WhisperCli)
}
