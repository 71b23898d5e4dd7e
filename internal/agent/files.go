package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmadusud/salesagent/internal/console"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFileExtension = ".png"
	unknownAttachment    = "unknown"
	maxParallelDownloads = 4
)

// FileRef names a generated file attached to an assistant message.
type FileRef struct {
	FileID string
	Name   string
}

type annotation struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	FilePath *struct {
		FileID string `json:"file_id"`
	} `json:"file_path,omitempty"`
}

func filePathAnnotations(msg openai.Message) []annotation {
	var out []annotation
	for _, content := range msg.Content {
		if content.Text == nil {
			continue
		}
		for _, raw := range content.Text.Annotations {
			encoded, err := json.Marshal(raw)
			if err != nil {
				continue
			}
			var a annotation
			if err := json.Unmarshal(encoded, &a); err != nil {
				continue
			}
			if a.Type == "file_path" && a.FilePath != nil && a.FilePath.FileID != "" {
				out = append(out, a)
			}
		}
	}
	return out
}

// FileRefs lists the files to download from msg. Image contents take precedence; the
// n-th image is named after the n-th file path annotation. Otherwise each file path
// annotation is downloaded under its own text.
func FileRefs(msg openai.Message) []FileRef {
	annotations := filePathAnnotations(msg)

	var refs []FileRef
	for _, content := range msg.Content {
		if content.ImageFile == nil || content.ImageFile.FileID == "" {
			continue
		}
		name := unknownAttachment
		if i := len(refs); i < len(annotations) {
			name = annotations[i].Text + defaultFileExtension
		}
		refs = append(refs, FileRef{FileID: content.ImageFile.FileID, Name: name})
	}
	if len(refs) > 0 {
		return refs
	}

	for _, a := range annotations {
		refs = append(refs, FileRef{FileID: a.FilePath.FileID, Name: a.Text})
	}
	return refs
}

// LocalFileName builds "<stem>.<file_id><ext>" from the part of the attachment name after
// the last ':' (e.g. "sandbox:/mnt/data/chart.png"). The extension defaults to .png.
func LocalFileName(attachmentName, fileID string) string {
	part := attachmentName
	if i := strings.LastIndex(part, ":"); i >= 0 {
		part = part[i+1:]
	}
	base := filepath.Base(filepath.FromSlash(part))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = defaultFileExtension
	}
	return fmt.Sprintf("%s.%s%s", stem, fileID, ext)
}

// Downloader saves generated files under a local directory.
type Downloader struct {
	api     FileContentAPI
	dir     string
	console *console.Console
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(api FileContentAPI, dir string, out *console.Console) *Downloader {
	return &Downloader{api: api, dir: dir, console: out}
}

// DownloadAll fetches refs concurrently and returns the saved paths in ref order.
func (d *Downloader) DownloadAll(ctx context.Context, refs []FileRef) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}

	paths := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)
	for i, ref := range refs {
		g.Go(func() error {
			path, err := d.download(gctx, ref)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (d *Downloader) download(ctx context.Context, ref FileRef) (string, error) {
	d.console.Green("Getting file with ID: %s", ref.FileID)

	content, err := d.api.GetFileContent(ctx, ref.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to get file %s: %w", ref.FileID, err)
	}
	defer content.Close()

	path := filepath.Join(d.dir, LocalFileName(ref.Name, ref.FileID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	d.console.Green("File saved to %s", path)
	return path, nil
}
