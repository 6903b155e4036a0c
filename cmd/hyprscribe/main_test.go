package main

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/leonardotrapani/hyprscribe/internal/archive"
	"github.com/leonardotrapani/hyprscribe/internal/export"
	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/textcodec"
)

func TestExportArgs(t *testing.T) {
	args, err := exportArgs("", false, false)
	if err != nil || len(args) != 0 {
		t.Errorf("exportArgs() = %v, %v, want no args", args, err)
	}

	args, err = exportArgs("out.json", true, true)
	if err != nil {
		t.Fatalf("exportArgs() error = %v", err)
	}
	abs, _ := filepath.Abs("out.json")
	if want := []string{abs, "summary", "archive"}; !slices.Equal(args, want) {
		t.Errorf("exportArgs() = %v, want %v", args, want)
	}

	args, _ = exportArgs("", false, true)
	if !slices.Equal(args, []string{"archive"}) {
		t.Errorf("exportArgs() = %v, want [archive]", args)
	}
}

func TestInjectMode(t *testing.T) {
	tests := []struct {
		copyText, typeText bool
		want               string
		wantErr            bool
	}{
		{false, false, "", false},
		{true, false, injection.ModeClipboard, false},
		{false, true, injection.ModeType, false},
		{true, true, "", true},
	}

	for _, tt := range tests {
		got, err := injectMode(tt.copyText, tt.typeText)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("injectMode(%v, %v) = %q, %v", tt.copyText, tt.typeText, got, err)
		}
	}
}

func TestResolveHash(t *testing.T) {
	ctx := context.Background()
	a, err := archive.Open(ctx, filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	var hashes []string
	for _, text := range []string{"first", "second"} {
		exp := export.SessionExport{
			Metadata:   export.Metadata{ExportedAt: "2024-03-01T10:00:00.000"},
			Transcript: []textcodec.Entry{{Timestamp: "unknown", Speaker: "Alice", Text: text}},
		}
		h, _, err := a.Save(ctx, exp, "")
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		hashes = append(hashes, h)
	}

	got, err := resolveHash(ctx, a, hashes[0][:12])
	if err != nil || got != hashes[0] {
		t.Errorf("resolveHash(prefix) = %q, %v, want %q", got, err, hashes[0])
	}
	if got, err := resolveHash(ctx, a, hashes[1]); err != nil || got != hashes[1] {
		t.Errorf("resolveHash(full) = %q, %v", got, err)
	}
	if _, err := resolveHash(ctx, a, ""); err == nil {
		t.Error("empty prefix matches every entry and should be ambiguous")
	}
	if _, err := resolveHash(ctx, a, "zz"); !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("resolveHash(zz) error = %v, want ErrNotFound", err)
	}
}
