package crawl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PendingFile returns the path of the persisted pending request list
// for the given git dir
func PendingFile(gitDir string) string {
	return filepath.Join(gitDir, "forge-mirror", "pending.yaml")
}

// LoadPending reads the pending request list persisted by the previous
// run. An absent, unreadable or corrupt file means no pending requests,
// a crawl must never be blocked by broken retry state. Entries which do
// not match the catalog are dropped.
func LoadPending(path string, log *slog.Logger) []Request {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error("unable to read pending request file", "path", path, "err", err)
		}
		return nil
	}

	var reqs []Request
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		log.Error("ignoring corrupt pending request file", "path", path, "err", err)
		return nil
	}

	seen := map[Request]struct{}{}
	pending := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		if !knownOp(req.Op) || lookup(req.Op).numbered != req.Numbered {
			log.Error("dropping malformed pending request", "request", req)
			continue
		}
		// each pending request is replayed at most once
		if _, ok := seen[req]; ok {
			continue
		}
		seen[req] = struct{}{}
		pending = append(pending, req)
	}
	return pending
}

// SavePending persists the pending request list for the next run, or
// removes the file when there is nothing left to retry. Requests which
// failed for the first time this run come first, requests which were
// replayed and failed again follow, so a persistently failing request
// cannot starve fresh failures.
func SavePending(path string, fresh, replayed []Request) error {
	combined := make([]Request, 0, len(fresh)+len(replayed))
	combined = append(combined, fresh...)
	combined = append(combined, replayed...)

	if len(combined) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("unable to remove pending request file err:%w", err)
		}
		return nil
	}

	data, err := yaml.Marshal(combined)
	if err != nil {
		return fmt.Errorf("unable to render pending request list err:%w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("unable to create pending request dir err:%w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("unable to write pending request file err:%w", err)
	}
	return nil
}
