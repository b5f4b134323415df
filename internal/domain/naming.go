package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// Directory and file names for tokenscope.
const (
	ProjectDirName  = ".tokenscope"    // Per-project directory
	GlobalDirName   = "tokenscope"     // Directory under XDG_CONFIG_HOME
	ConfigFileName  = "config.toml"    // Config file name
	StateFileName   = "state.json"     // Editor state file name
	ScriptsDirName  = "scripts"        // Named script library (json backend)
	LogFileName     = "tokenscope.log" // Global log file name
	scriptExtension = ".json"
)

// ProjectDir returns the tokenscope directory of a project.
func ProjectDir(root string) string {
	return filepath.Join(root, ProjectDirName)
}

// ProjectConfigPath returns the project config path.
func ProjectConfigPath(root string) string {
	return filepath.Join(ProjectDir(root), ConfigFileName)
}

// GlobalDir returns the global tokenscope directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalDir(configHome string) string {
	return filepath.Join(configHome, GlobalDirName)
}

// GlobalConfigPath returns the global config path.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalDir(configHome), ConfigFileName)
}

// StatePath returns the path to the editor state file.
func StatePath(stateDir string) string {
	return filepath.Join(stateDir, StateFileName)
}

// ScriptPath returns the path to a named script in the json library.
func ScriptPath(stateDir, name string) string {
	return filepath.Join(stateDir, ScriptsDirName, name+scriptExtension)
}

// ScriptNameFromFile returns the script name for a library file name, and
// false if the file is not a script.
func ScriptNameFromFile(file string) (string, bool) {
	if filepath.Ext(file) != scriptExtension {
		return "", false
	}
	name := file[:len(file)-len(scriptExtension)]
	return name, ValidateScriptName(name) == nil
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(stateDir string) string {
	return filepath.Join(stateDir, "logs", LogFileName)
}

// ScopeLogPath returns the path to the log file of one scope.
func ScopeLogPath(stateDir, scope string) string {
	return filepath.Join(stateDir, "logs", fmt.Sprintf("%s.log", scope))
}

// ScriptRef returns the git reference a named script is stored under.
// Format: refs/<namespace>/scripts/<name>
func ScriptRef(namespace, name string) string {
	return fmt.Sprintf("refs/%s/scripts/%s", namespace, name)
}

// scriptNamePattern matches names usable both as file names and ref names.
var scriptNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateScriptName checks that a script name is safe to store.
func ValidateScriptName(name string) error {
	if name == "" {
		return ErrEmptyScriptName
	}
	if !scriptNamePattern.MatchString(name) || len(name) > 100 || filepath.Ext(name) == ".lock" {
		return fmt.Errorf("%w: %q", ErrInvalidScriptName, name)
	}
	return nil
}
