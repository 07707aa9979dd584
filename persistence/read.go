package persistence

import "encoding/json"

// Read loads the bundle currently on disk in dir. Missing files read back
// as empty/nil rather than erroring — a tab's first run has no artifacts
// yet. The version file, if present, gates against an incompatible major
// version.
func Read(dir string) (Bundle, error) {
	paths := artifactPaths(dir)

	var version string
	if raw := readFileSoft(paths[fileVersion]); raw != nil {
		json.Unmarshal(raw, &version)
	}
	if err := checkVersion(version); err != nil {
		return Bundle{}, err
	}

	return Bundle{
		Version:          version,
		WorldState:       readFileSoft(paths[fileWorld]),
		ConversationLog:  readFileSoft(paths[fileLog]),
		Rules:            readFileSoft(paths[fileRules]),
		Timers:           readFileSoft(paths[fileTimers]),
		SystemContext:    readFileSoft(paths[fileSystem]),
		WorkflowSettings: readFileSoft(paths[fileWorkflow]),
	}, nil
}
