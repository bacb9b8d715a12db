package assets

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
)

const indexFile = "index.html"

// assetKey maps a URL path onto a slash-separated key without a leading
// slash. Directory paths resolve to their index.html.
func assetKey(urlPath string) string {
	key := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") || key == "/" {
		key = path.Join(key, indexFile)
	}
	return strings.TrimPrefix(key, "/")
}

func readOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func newResponse(r *http.Request, status int, header http.Header, body io.ReadCloser, length int64) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	if body == nil {
		body = http.NoBody
	}

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: length,
		Request:       r,
	}
}

func textResponse(r *http.Request, status int) *http.Response {
	msg := []byte(http.StatusText(status) + "\n")

	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(msg)))

	return newResponse(r, status, header, io.NopCloser(bytes.NewReader(msg)), int64(len(msg)))
}

func notFound(r *http.Request) *http.Response {
	return textResponse(r, http.StatusNotFound)
}

func methodNotAllowed(r *http.Request) *http.Response {
	resp := textResponse(r, http.StatusMethodNotAllowed)
	resp.Header.Set("Allow", "GET, HEAD")
	return resp
}
