package convlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/model"
)

const scannerBufSize = 1 << 20 // 1MB, matches the longest expected single entry

// WriteJSONL writes every entry as one JSON object per line, the format
// named by the persistence design for the conversation log artifact.
func (l *Log) WriteJSONL(path string) error {
	data, err := l.MarshalJSONL()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return engineerr.New("convlog", "write_jsonl", engineerr.PersistenceError, err)
	}
	return nil
}

// MarshalJSONL renders every entry as one JSON object per line, the same
// format WriteJSONL writes to disk, for a caller (the Bundle persistence
// path) that moves raw bytes rather than file paths.
func (l *Log) MarshalJSONL() ([]byte, error) {
	l.mu.RLock()
	entries := make([]model.TurnRecord, len(l.entries))
	copy(entries, l.entries)
	l.mu.RUnlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, engineerr.New("convlog", "marshal_jsonl", engineerr.PersistenceError, err)
		}
	}
	return buf.Bytes(), nil
}

// LoadJSONL replaces the in-memory log with entries read line-by-line from
// path. A missing file is not an error: it yields an empty log, consistent
// with the fail-soft-read convention used elsewhere in persistence.
func LoadJSONL(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, engineerr.New("convlog", "load_jsonl", engineerr.PersistenceError, err)
	}
	return UnmarshalJSONL(data)
}

// UnmarshalJSONL parses one JSON object per line into a fresh Log. Empty
// input yields an empty log. Malformed lines are skipped rather than
// aborting the load, the same fail-soft convention LoadJSONL uses.
func UnmarshalJSONL(data []byte) (*Log, error) {
	l := New()
	if len(data) == 0 {
		return l, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e model.TurnRecord
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		l.entries = append(l.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, engineerr.New("convlog", "unmarshal_jsonl", engineerr.PersistenceError, err)
	}
	return l, nil
}
