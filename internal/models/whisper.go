package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// WhisperModel describes a downloadable ggml model.
type WhisperModel struct {
	ID           string // e.g. "base.en"
	Name         string
	Filename     string // e.g. "ggml-base.en.bin"
	Size         string
	SizeBytes    int64
	Multilingual bool
}

// DirName is the directory a downloaded model is stored in under the models root.
func (m WhisperModel) DirName() string {
	return "whisper-" + m.ID
}

var whisperModels = []WhisperModel{
	{ID: "tiny.en", Name: "Tiny English", Filename: "ggml-tiny.en.bin", Size: "75MB", SizeBytes: 75_000_000},
	{ID: "base.en", Name: "Base English", Filename: "ggml-base.en.bin", Size: "142MB", SizeBytes: 142_000_000},
	{ID: "small.en", Name: "Small English", Filename: "ggml-small.en.bin", Size: "466MB", SizeBytes: 466_000_000},
	{ID: "medium.en", Name: "Medium English", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_500_000_000},

	{ID: "tiny", Name: "Tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Name: "Base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Name: "Small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Name: "Medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large-v3", Name: "Large V3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000, Multilingual: true},
}

// DownloadBaseURL hosts the ggml files.
var DownloadBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// ProgressFunc is called during download with bytes downloaded and total.
type ProgressFunc func(downloaded, total int64)

func WhisperModels() []WhisperModel {
	result := make([]WhisperModel, len(whisperModels))
	copy(result, whisperModels)
	return result
}

// GetWhisperModel returns nil for unknown IDs.
func GetWhisperModel(id string) *WhisperModel {
	for _, m := range whisperModels {
		if m.ID == id {
			return &m
		}
	}
	return nil
}

// FindWhisperModel returns the first ggml model file inside dir.
func FindWhisperModel(dir string) (string, error) {
	if err := CheckModelDir(dir); err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "ggml-*.bin"))
	if err != nil || len(matches) == 0 {
		return "", &ModelNotFoundError{Path: dir, Reason: "no ggml-*.bin file"}
	}
	return matches[0], nil
}

// Download fetches a whisper model into root/<DirName>/ and returns that directory.
// The file is written to a temporary name first so an interrupted download never
// leaves a model directory that looks usable.
func Download(ctx context.Context, id, root string, onProgress ProgressFunc) (string, error) {
	info := GetWhisperModel(id)
	if info == nil {
		return "", fmt.Errorf("unknown model: %s", id)
	}

	dir := filepath.Join(root, info.DirName())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	destPath := filepath.Join(dir, info.Filename)
	tempPath := filepath.Join(root, "."+info.Filename+".downloading")

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		out.Close()
		os.Remove(tempPath)
	}()

	url := strings.TrimRight(DownloadBaseURL, "/") + "/" + info.Filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = info.SizeBytes
	}

	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("write: %w", err)
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return "", fmt.Errorf("finalize download: %w", err)
	}
	return dir, nil
}
