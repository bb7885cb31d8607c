// Package journal persists session events as compressed JSONL so a
// bug report can be replayed offline.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

type entry struct {
	At    time.Time      `json:"at"`
	Kind  string         `json:"kind"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Writer appends session events to day-stamped .jsonl.zst files.
type Writer struct {
	baseDir string
	log     *slog.Logger

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewWriter(baseDir string, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{baseDir: baseDir, log: log.With("component", "journal")}
}

// Record implements the session journal. Failures are logged, never
// propagated; the journal must not interfere with play.
func (w *Writer) Record(kind string, attrs map[string]any) {
	if err := w.write(entry{At: time.Now().UTC(), Kind: kind, Attrs: attrs}); err != nil {
		w.log.Warn("journal write failed", "kind", kind, "err", err)
	}
}

func (w *Writer) write(e entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := e.At.Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.baseDir, fmt.Sprintf("session-%s.jsonl.zst", day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curDay = day
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) closeLocked() error {
	var errEnc error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		errEnc = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return errEnc
}
