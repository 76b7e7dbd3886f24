package storelog_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/arclayer/layerstore/internal/storelog"
)

func TestDiscardDropsOutput(t *testing.T) {
	log := storelog.Discard()
	log.Info("should not appear anywhere")
}

func TestNewWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.log")
	log := storelog.New(storelog.Options{FilePath: path, JSON: true, Level: slog.LevelDebug})
	log.Debug("layer committed", "name", "deadbeef")
}

func TestNewTextHandlerDefault(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)
	slog.New(h).Info("sanity check")
	if buf.Len() == 0 {
		t.Fatal("expected text handler to write something")
	}
}
