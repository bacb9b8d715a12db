package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
)

// Dir serves assets from a file system tree.
type Dir struct {
	fsys fs.FS
}

// NewDir returns a binding rooted at fsys.
func NewDir(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// OpenDir returns a binding rooted at the directory root on disk.
func OpenDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open assets dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open assets dir: %s is not a directory", root)
	}

	return NewDir(os.DirFS(root)), nil
}

// Fetch implements worker.Fetcher.
func (d *Dir) Fetch(r *http.Request) (*http.Response, error) {
	if !readOnly(r.Method) {
		return methodNotAllowed(r), nil
	}

	key := assetKey(r.URL.Path)
	if !fs.ValidPath(key) {
		return notFound(r), nil
	}

	f, err := d.fsys.Open(key)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(r), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return notFound(r), nil
	}

	var head []byte
	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		if head, err = readHead(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		ct = mimetype.Detect(head).String()
	}

	header := make(http.Header)
	header.Set("Content-Type", ct)
	header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if !info.ModTime().IsZero() {
		header.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	}

	var body io.ReadCloser = http.NoBody
	if r.Method == http.MethodHead {
		f.Close()
	} else {
		body = &fileBody{Reader: io.MultiReader(bytes.NewReader(head), f), Closer: f}
	}

	return newResponse(r, http.StatusOK, header, body, info.Size()), nil
}

// fileBody streams the sniffed head followed by the rest of the file.
type fileBody struct {
	io.Reader
	io.Closer
}

const sniffLen = 512

func readHead(f io.Reader) ([]byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return head[:n], nil
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
