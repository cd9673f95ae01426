package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// logTailBytes bounds how much of today's info log /log returns, so a
// long-running node's log file never turns one /log reply into an
// unbounded response body.
const logTailBytes = 64 * 1024

// Log answers spec.md §6 "/log -> {log}": the tail of this node's current
// info-level log file, the same file internal/logging.Setup writes
// (spec.md §9 "operators detect divergence via /stats ... restore via
// dumpDatabase/reset").
func Log(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(d.Config.LogDir, fmt.Sprintf(config.LogFilePattern, time.Now().Format("2006-01-02"), "info"))
		tail, err := tailFile(path, logTailBytes)
		if err != nil {
			writeError(w, fmt.Errorf("%w: read log file: %s", config.ErrChainView, err))
			return
		}
		env, err := signPayload(d, map[string]interface{}{"log": tail})
		writeEnvelope(w, env, err)
	}
}

func tailFile(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	offset := int64(0)
	if size > maxBytes {
		offset = size - maxBytes
	}
	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return "", err
	}
	return string(buf), nil
}

// DumpDatabase answers spec.md §6 "/dumpDatabase -> {sql}": a complete,
// self-contained snapshot of this node's local state for manual recovery
// (spec.md §4.4, §1).
func DumpDatabase(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Store.Lock()
		sql, err := d.Store.Dump()
		d.Store.Unlock()
		if err != nil {
			writeError(w, err)
			return
		}
		env, err := signPayload(d, map[string]interface{}{"sql": sql})
		writeEnvelope(w, env, err)
	}
}

// DingoDoesAHarakiri answers spec.md §6 "/dingoDoesAHarakiri -> {} —
// terminates process": an authority-only kill switch an operator (or a
// committee member judging this node compromised) can trigger remotely.
// The signed empty reply is flushed before the process exits.
func DingoDoesAHarakiri(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := signPayload(d, map[string]interface{}{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeEnvelope(w, env, nil)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		go func() {
			time.Sleep(200 * time.Millisecond)
			os.Exit(0)
		}()
	}
}
