package fetch

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flutterstrap/internal/runner"
	"flutterstrap/internal/runner/runnertest"
)

type entry struct {
	name string
	body string
	mode os.FileMode
	link string
}

func zipArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		hdr.SetMode(mode)
		fw, err := w.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func tarGzArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: int64(e.mode.Perm()), Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}
		if e.link != "" {
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.link == "" {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serve(t *testing.T, status int, body []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newRequest(t *testing.T, url string) Request {
	t.Helper()
	tooling := t.TempDir()
	return Request{
		Dir:          filepath.Join(tooling, "flutter"),
		URL:          url,
		Subdir:       "flutter",
		DownloadsDir: filepath.Join(tooling, "downloads"),
	}
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestEnsureZip(t *testing.T) {
	archive := zipArchive(t, []entry{
		{name: "flutter/"},
		{name: "flutter/bin/flutter", body: "#!/bin/sh\n", mode: 0o755},
		{name: "flutter/version", body: "3.24.5"},
	})
	srv, hits := serve(t, http.StatusOK, archive)

	req := newRequest(t, srv.URL+"/flutter_linux_3.24.5-stable.zip")
	var lastDone, lastTotal int64
	req.Progress = func(done, total int64) { lastDone, lastTotal = done, total }

	res, err := Ensure(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, int64(len(archive)), res.Bytes)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, int64(len(archive)), lastDone)
	assert.Equal(t, int64(len(archive)), lastTotal)

	version, err := os.ReadFile(filepath.Join(req.Dir, "version"))
	require.NoError(t, err)
	assert.Equal(t, "3.24.5", string(version))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(req.Dir, "bin", "flutter"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}
	assert.Empty(t, leftovers(t, req.DownloadsDir))
}

func TestEnsureSkipsExistingDir(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, nil)
	req := newRequest(t, srv.URL+"/x.zip")
	require.NoError(t, os.MkdirAll(req.Dir, 0o755))

	res, err := Ensure(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestEnsureHTTPErrorLeavesNoDir(t *testing.T) {
	srv, _ := serve(t, http.StatusNotFound, []byte("missing"))
	req := newRequest(t, srv.URL+"/x.zip")

	_, err := Ensure(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownload)
	assert.NoDirExists(t, req.Dir)
	assert.Empty(t, leftovers(t, req.DownloadsDir))
}

func TestEnsureConnectionErrorIsDownloadError(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, nil)
	url := srv.URL + "/x.zip"
	srv.Close()

	req := newRequest(t, url)
	_, err := Ensure(context.Background(), req)
	assert.ErrorIs(t, err, ErrDownload)
	assert.NoDirExists(t, req.Dir)
}

func TestEnsureCorruptArchiveLeavesNoDir(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, []byte("not a zip"))
	req := newRequest(t, srv.URL+"/x.zip")

	_, err := Ensure(context.Background(), req)
	assert.ErrorIs(t, err, ErrExtract)
	assert.NoDirExists(t, req.Dir)
	assert.Empty(t, leftovers(t, req.DownloadsDir))
}

func TestEnsureMissingSubdir(t *testing.T) {
	archive := zipArchive(t, []entry{{name: "other/file", body: "x"}})
	srv, _ := serve(t, http.StatusOK, archive)
	req := newRequest(t, srv.URL+"/x.zip")

	_, err := Ensure(context.Background(), req)
	assert.ErrorIs(t, err, ErrExtract)
	assert.NoDirExists(t, req.Dir)
}

func TestEnsureRejectsEscapingEntries(t *testing.T) {
	archive := zipArchive(t, []entry{
		{name: "flutter/ok", body: "x"},
		{name: "../../evil", body: "x"},
	})
	srv, _ := serve(t, http.StatusOK, archive)
	req := newRequest(t, srv.URL+"/x.zip")

	_, err := Ensure(context.Background(), req)
	assert.ErrorIs(t, err, ErrExtract)
	assert.Contains(t, err.Error(), "escapes")
	assert.NoDirExists(t, req.Dir)
}

func TestEnsureTarGzWithSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	archive := tarGzArchive(t, []entry{
		{name: "cmdline-tools/bin/sdkmanager", body: "#!/bin/sh\n", mode: 0o755},
		{name: "cmdline-tools/bin/sdk", link: "sdkmanager"},
	})
	srv, _ := serve(t, http.StatusOK, archive)
	req := newRequest(t, srv.URL+"/tools.tar.gz")
	req.Subdir = "cmdline-tools"
	req.Dir = filepath.Join(filepath.Dir(req.DownloadsDir), "android-sdk", "cmdline-tools", "latest")

	_, err := Ensure(context.Background(), req)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(req.Dir, "bin", "sdkmanager"))
	link, err := os.Readlink(filepath.Join(req.Dir, "bin", "sdk"))
	require.NoError(t, err)
	assert.Equal(t, "sdkmanager", link)
}

func TestEnsureTarGzRejectsEscapingSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	archive := tarGzArchive(t, []entry{
		{name: "flutter/escape", link: "../../../etc/passwd"},
	})
	srv, _ := serve(t, http.StatusOK, archive)
	req := newRequest(t, srv.URL+"/x.tgz")

	_, err := Ensure(context.Background(), req)
	assert.ErrorIs(t, err, ErrExtract)
	assert.NoDirExists(t, req.Dir)
}

func TestEnsureTarXzUsesRunner(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, []byte("xz payload"))
	req := newRequest(t, srv.URL+"/flutter_linux_3.24.5-stable.tar.xz")

	fake := runnertest.New()
	fake.Handle("tar", func(call runnertest.Call) (runner.RunResult, error) {
		dest := call.Args[len(call.Args)-1]
		bin := filepath.Join(dest, "flutter", "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			return runner.RunResult{}, err
		}
		return runner.RunResult{}, os.WriteFile(filepath.Join(bin, "flutter"), []byte("#!/bin/sh\n"), 0o755)
	})

	_, err := Fetcher{Runner: fake}.Ensure(context.Background(), req)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(req.Dir, "bin", "flutter"))

	calls := fake.CallsTo("tar")
	require.Len(t, calls, 1)
	assert.Equal(t, "-xJf", calls[0].Args[0])
	assert.Equal(t, "-C", calls[0].Args[2])
}

func TestEnsureTarXzFailure(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, []byte("xz payload"))
	req := newRequest(t, srv.URL+"/x.tar.xz")

	fake := runnertest.New()
	fake.Handle("tar", func(runnertest.Call) (runner.RunResult, error) {
		return runner.RunResult{Stderr: []byte("xz: corrupt")}, assert.AnError
	})

	_, err := Fetcher{Runner: fake}.Ensure(context.Background(), req)
	assert.ErrorIs(t, err, ErrExtract)
	assert.ErrorIs(t, err, runner.ErrCommand)
	assert.NoDirExists(t, req.Dir)
}

func TestInferFormat(t *testing.T) {
	tests := map[string]struct {
		url     string
		want    Format
		wantErr bool
	}{
		"zip":       {url: "https://x/commandlinetools-linux-1_latest.zip", want: FormatZip},
		"tar.gz":    {url: "https://x/a.tar.gz?sig=1", want: FormatTarGz},
		"tgz":       {url: "https://x/a.TGZ", want: FormatTarGz},
		"tar.xz":    {url: "https://x/flutter.tar.xz", want: FormatTarXz},
		"unknown":   {url: "https://x/a.rar", wantErr: true},
		"no suffix": {url: "https://x/", wantErr: true},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			got, err := InferFormat(tc.url)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrExtract)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
