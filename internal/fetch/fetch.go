// Package fetch materialises an SDK directory from a downloaded archive. The
// target directory only appears once the archive has been fully downloaded and
// extracted, so its presence is a reliable install marker.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"flutterstrap/internal/paths"
	"flutterstrap/internal/runner"
)

var (
	ErrDownload = errors.New("download failed")
	ErrExtract  = errors.New("extract failed")
)

type Format string

const (
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
	FormatTarXz Format = "tar.xz"
)

// ProgressFunc receives bytes downloaded so far and the expected total, which
// is -1 when the server does not send a length.
type ProgressFunc func(done, total int64)

type Request struct {
	Dir          string
	URL          string
	Format       Format
	Subdir       string
	DownloadsDir string
	Progress     ProgressFunc
}

type Result struct {
	Dir     string
	URL     string
	Skipped bool
	Bytes   int64
}

// Fetcher downloads with Client and uses Runner for tar.xz archives.
type Fetcher struct {
	Client    *http.Client
	Runner    runner.Runner
	UserAgent string
}

// Ensure uses a Fetcher with default collaborators.
func Ensure(ctx context.Context, req Request) (Result, error) {
	return Fetcher{}.Ensure(ctx, req)
}

// Ensure leaves an existing Dir untouched. Otherwise it downloads URL, extracts
// it and moves Subdir of the archive onto Dir.
func (f Fetcher) Ensure(ctx context.Context, req Request) (Result, error) {
	res := Result{Dir: req.Dir, URL: req.URL}

	exists, err := paths.Exists(req.Dir)
	if err != nil {
		return res, fmt.Errorf("stat %s: %w", req.Dir, err)
	}
	if exists {
		res.Skipped = true
		return res, nil
	}

	format := req.Format
	if format == "" {
		format, err = InferFormat(req.URL)
		if err != nil {
			return res, err
		}
	}
	if err := os.MkdirAll(req.DownloadsDir, 0o755); err != nil {
		return res, fmt.Errorf("prepare downloads dir: %w", err)
	}

	archivePath, n, err := f.download(ctx, req)
	if err != nil {
		return res, err
	}
	defer func() { _ = os.Remove(archivePath) }()
	res.Bytes = n

	extractDir, err := os.MkdirTemp(req.DownloadsDir, "extract-")
	if err != nil {
		return res, fmt.Errorf("%w: create extract dir: %w", ErrExtract, err)
	}
	defer func() { _ = os.RemoveAll(extractDir) }()

	if err := f.extract(ctx, format, archivePath, extractDir); err != nil {
		return res, err
	}

	src := extractDir
	if req.Subdir != "" {
		src = filepath.Join(extractDir, filepath.FromSlash(req.Subdir))
	}
	if ok, _ := paths.DirExists(src); !ok {
		return res, fmt.Errorf("%w: archive %s has no %q directory", ErrExtract, req.URL, req.Subdir)
	}
	if err := Promote(src, req.Dir); err != nil {
		return res, err
	}
	return res, nil
}

// Promote renames a fully populated staging directory onto dir.
func Promote(src, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", filepath.Dir(dir), err)
	}
	if err := os.Rename(src, dir); err != nil {
		return fmt.Errorf("move into %s: %w", dir, err)
	}
	return nil
}

// InferFormat picks the archive format from the URL path suffix.
func InferFormat(rawURL string) (Format, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse url %q: %w", ErrDownload, rawURL, err)
	}
	name := strings.ToLower(path.Base(parsed.Path))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatTarXz, nil
	default:
		return "", fmt.Errorf("%w: cannot infer archive format from %s", ErrExtract, rawURL)
	}
}

func (f Fetcher) download(ctx context.Context, req Request) (string, int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: create request: %w", ErrDownload, err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = "flutterstrap/1.0"
	}
	httpReq.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		return "", 0, fmt.Errorf("%w: %s: %w", ErrDownload, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("%w: %s: unexpected status %s", ErrDownload, req.URL, resp.Status)
	}

	tmpFile, err := os.CreateTemp(req.DownloadsDir, "download-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp file: %w", ErrDownload, err)
	}
	tmpPath := tmpFile.Name()

	var body io.Reader = resp.Body
	if req.Progress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, fn: req.Progress}
	}
	n, err := io.Copy(tmpFile, body)
	if closeErr := tmpFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		return "", 0, fmt.Errorf("%w: write %s: %w", ErrDownload, req.URL, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("%w: %s: got %d of %d bytes", ErrDownload, req.URL, n, resp.ContentLength)
	}
	return tmpPath, n, nil
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.done, p.total)
	}
	return n, err
}
