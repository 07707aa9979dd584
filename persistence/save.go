package persistence

import "os"

type backupPair struct {
	original string
	backup   string
}

// Save atomically writes bundle into dir: every existing artifact is
// backed up with a timestamp suffix, the new artifacts are written, and if
// any write fails every backup made so far is restored (in reverse order)
// before returning a PersistenceError — dir is left exactly as it was
// found. On success, backups are scheduled for deletion after a grace
// period rather than removed synchronously.
func Save(dir string, bundle Bundle, nowStamp string) error {
	if err := ensureDir(dir); err != nil {
		return err
	}
	if bundle.Version == "" {
		bundle.Version = FormatVersion
	}

	paths := artifactPaths(dir)
	contents := map[string][]byte{
		fileVersion:  []byte(`"` + bundle.Version + `"`),
		fileWorld:    bundle.WorldState,
		fileLog:      bundle.ConversationLog,
		fileRules:    bundle.Rules,
		fileTimers:   bundle.Timers,
		fileSystem:   bundle.SystemContext,
		fileWorkflow: bundle.WorkflowSettings,
	}

	var backups []backupPair
	rollback := func() {
		for i := len(backups) - 1; i >= 0; i-- {
			os.Rename(backups[i].backup, backups[i].original)
		}
	}

	for name, path := range paths {
		backup, err := backupRename(path, nowStamp)
		if err != nil {
			rollback()
			return err
		}
		if backup != "" {
			backups = append(backups, backupPair{original: path, backup: backup})
		}
		if err := writeFileAtomic(path, contents[name]); err != nil {
			rollback()
			return err
		}
	}

	backupPaths := make([]string, len(backups))
	for i, b := range backups {
		backupPaths[i] = b.backup
	}
	scheduleCleanup(backupPaths)
	return nil
}
