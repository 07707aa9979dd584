package persistence

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Valaery/worldengine/engineerr"
)

// writeFileAtomic writes data to a sibling .tmp path, fsyncs it, then
// renames it into place. A failure during the write phase never touches
// the original file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return engineerr.New("persistence", "writeFileAtomic", engineerr.PersistenceError, err).WithDetail(path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return engineerr.New("persistence", "writeFileAtomic", engineerr.PersistenceError, err).WithDetail(path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return engineerr.New("persistence", "writeFileAtomic", engineerr.PersistenceError, err).WithDetail(path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return engineerr.New("persistence", "writeFileAtomic", engineerr.PersistenceError, err).WithDetail(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return engineerr.New("persistence", "writeFileAtomic", engineerr.PersistenceError, err).WithDetail(path)
	}
	return nil
}

// readFileSoft reads path, returning a nil slice and no error when the
// file does not exist or fails to read — callers treat an absent artifact
// as an empty one rather than a fatal condition.
func readFileSoft(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

// backupRename moves an existing file aside with a timestamp suffix,
// returning the backup path, or "" if the original didn't exist.
func backupRename(path string, stamp string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	backup := path + ".bak." + stamp
	if err := os.Rename(path, backup); err != nil {
		return "", engineerr.New("persistence", "backupRename", engineerr.PersistenceError, err).WithDetail(path)
	}
	return backup, nil
}

// backupCleanupGrace is how long a successful restore's backups are kept
// before being scheduled for deletion.
const backupCleanupGrace = 10 * time.Minute

func scheduleCleanup(paths []string) {
	if len(paths) == 0 {
		return
	}
	time.AfterFunc(backupCleanupGrace, func() {
		for _, p := range paths {
			os.Remove(p)
		}
	})
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return engineerr.New("persistence", "ensureDir", engineerr.PersistenceError, err).WithDetail(dir)
	}
	return nil
}

func artifactPaths(dir string) map[string]string {
	return map[string]string{
		fileVersion:  filepath.Join(dir, fileVersion),
		fileWorld:    filepath.Join(dir, fileWorld),
		fileLog:      filepath.Join(dir, fileLog),
		fileRules:    filepath.Join(dir, fileRules),
		fileTimers:   filepath.Join(dir, fileTimers),
		fileSystem:   filepath.Join(dir, fileSystem),
		fileWorkflow: filepath.Join(dir, fileWorkflow),
	}
}
