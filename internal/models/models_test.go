package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListModelDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vosk-en", "am", "final.mdl"), "x")
	writeFile(t, filepath.Join(root, "whisper-base", "ggml-base.bin"), "x")
	writeFile(t, filepath.Join(root, "README"), "not a dir")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, ".cache", "x"), "x")

	got, err := ListModelDirs(root)
	if err != nil {
		t.Fatalf("ListModelDirs failed: %v", err)
	}
	want := []string{"vosk-en", "whisper-base"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListModelDirs = %v, want %v", got, want)
	}
}

func TestListModelDirs_MissingRoot(t *testing.T) {
	got, err := ListModelDirs(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no dirs, got %v", got)
	}
}

func TestCheckModelDir(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "full")
	writeFile(t, filepath.Join(full, "model.bin"), "x")
	empty := filepath.Join(root, "empty")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "file")
	writeFile(t, file, "x")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"populated", full, false},
		{"empty", empty, true},
		{"missing", filepath.Join(root, "missing"), true},
		{"regular file", file, true},
		{"unset", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckModelDir(tt.path)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var notFound *ModelNotFoundError
			if !errors.As(err, &notFound) {
				t.Errorf("expected *ModelNotFoundError, got %v", err)
			}
		})
	}
}

func TestFindWhisperModel(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindWhisperModel(dir); err == nil {
		t.Error("empty dir should fail")
	}

	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	var notFound *ModelNotFoundError
	if _, err := FindWhisperModel(dir); !errors.As(err, &notFound) {
		t.Errorf("dir without ggml file should be ModelNotFoundError, got %v", err)
	}

	writeFile(t, filepath.Join(dir, "ggml-base.en.bin"), "x")
	path, err := FindWhisperModel(dir)
	if err != nil {
		t.Fatalf("FindWhisperModel failed: %v", err)
	}
	if filepath.Base(path) != "ggml-base.en.bin" {
		t.Errorf("found %s", path)
	}
}

func TestWhisperCatalogue(t *testing.T) {
	if GetWhisperModel("unknown") != nil {
		t.Error("unknown model should be nil")
	}
	m := GetWhisperModel("base.en")
	if m == nil || m.Filename != "ggml-base.en.bin" || m.Multilingual {
		t.Fatalf("unexpected base.en entry: %+v", m)
	}
	if m.DirName() != "whisper-base.en" {
		t.Errorf("DirName = %s", m.DirName())
	}

	list := WhisperModels()
	list[0].ID = "mutated"
	if WhisperModels()[0].ID == "mutated" {
		t.Error("WhisperModels should return a copy")
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/ggml-tiny.bin") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("fake model bytes"))
	}))
	defer server.Close()

	old := DownloadBaseURL
	DownloadBaseURL = server.URL
	defer func() { DownloadBaseURL = old }()

	root := t.TempDir()
	var lastProgress int64
	dir, err := Download(context.Background(), "tiny", root, func(done, total int64) {
		lastProgress = done
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if lastProgress != int64(len("fake model bytes")) {
		t.Errorf("progress = %d", lastProgress)
	}

	path, err := FindWhisperModel(dir)
	if err != nil {
		t.Fatalf("downloaded model not found: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "fake model bytes" {
		t.Errorf("content = %q", data)
	}

	dirs, _ := ListModelDirs(root)
	if !reflect.DeepEqual(dirs, []string{"whisper-tiny"}) {
		t.Errorf("model dirs after download = %v", dirs)
	}
}

func TestDownload_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	old := DownloadBaseURL
	DownloadBaseURL = server.URL
	defer func() { DownloadBaseURL = old }()

	if _, err := Download(context.Background(), "nope", t.TempDir(), nil); err == nil {
		t.Error("unknown model should fail")
	}

	root := t.TempDir()
	if _, err := Download(context.Background(), "tiny", root, nil); err == nil {
		t.Error("404 should fail")
	}
	if err := CheckModelDir(filepath.Join(root, "whisper-tiny")); err == nil {
		t.Error("failed download must not leave a usable model directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Download(ctx, "tiny", t.TempDir(), nil); err == nil {
		t.Error("cancelled context should fail")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/models"); got != filepath.Join(home, "models") {
		t.Errorf("ExpandPath = %s", got)
	}
	if got := ExpandPath("/abs/models"); got != "/abs/models" {
		t.Errorf("ExpandPath changed absolute path: %s", got)
	}
}
