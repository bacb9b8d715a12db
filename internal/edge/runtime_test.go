package edge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing/fstest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/asset-worker/internal/assets"
	"github.com/angeloszaimis/asset-worker/internal/edge"
	"github.com/angeloszaimis/asset-worker/internal/metrics"
	"github.com/angeloszaimis/asset-worker/internal/worker"
)

var _ = Describe("Runtime", func() {
	var (
		log       *slog.Logger
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
		collector.Start(ctx)
	})

	AfterEach(func() {
		cancel()
	})

	Context("with a directory binding", func() {
		var rt *edge.Runtime

		BeforeEach(func() {
			env := worker.Env{Assets: assets.NewDir(fstest.MapFS{
				"index.html": {Data: []byte("<html>...</html>")},
			})}
			rt = edge.New(log, env, collector)
		})

		It("should write the asset to the client", func() {
			w := httptest.NewRecorder()
			rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index.html", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
			Expect(w.Body.String()).To(Equal("<html>...</html>"))
		})

		It("should pass a 404 through", func() {
			w := httptest.NewRecorder()
			rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing-file.png", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).NotTo(ContainSubstring("<html>"))
		})

		It("should record metrics for served requests", func() {
			rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/index.html", nil))
			rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

			Eventually(func() map[int]int64 {
				return collector.Snapshot("dir").StatusCodes
			}).Should(And(HaveKeyWithValue(200, int64(1)), HaveKeyWithValue(404, int64(1))))
			Expect(collector.Snapshot("dir").TotalRequests).To(Equal(int64(2)))
		})
	})

	Context("with a fake binding", func() {
		It("should copy status, headers and body verbatim", func() {
			env := worker.Env{Assets: worker.FetcherFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusTeapot,
					Header: http.Header{
						"Cache-Control": {"no-store"},
						"Set-Cookie":    {"a=1", "b=2"},
					},
					Body: io.NopCloser(strings.NewReader("short and stout")),
				}, nil
			})}

			w := httptest.NewRecorder()
			edge.New(log, env, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pot", nil))

			Expect(w.Code).To(Equal(http.StatusTeapot))
			Expect(w.Header().Get("Cache-Control")).To(Equal("no-store"))
			Expect(w.Header().Values("Set-Cookie")).To(Equal([]string{"a=1", "b=2"}))
			Expect(w.Body.String()).To(Equal("short and stout"))
		})

		It("should omit the body for HEAD", func() {
			env := worker.Env{Assets: worker.FetcherFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{},
					Body:       io.NopCloser(strings.NewReader("body")),
				}, nil
			})}

			w := httptest.NewRecorder()
			edge.New(log, env, nil).ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.Len()).To(BeZero())
		})

		It("should hand the inbound request to the handler once", func() {
			var calls atomic.Int32
			var seen *http.Request
			handle := func(r *http.Request, env worker.Env) (*http.Response, error) {
				calls.Add(1)
				seen = r
				return worker.Handle(r, env)
			}
			env := worker.Env{Assets: worker.FetcherFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusNoContent, Header: http.Header{}}, nil
			})}

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			edge.NewWithHandler(log, handle, env, nil).ServeHTTP(httptest.NewRecorder(), req)

			Expect(calls.Load()).To(Equal(int32(1)))
			Expect(seen).To(BeIdenticalTo(req))
		})
	})

	Context("when the binding fails", func() {
		It("should answer 502 and count the failure", func() {
			env := worker.Env{Assets: worker.FetcherFunc(func(*http.Request) (*http.Response, error) {
				return nil, errors.New("origin exploded")
			})}

			w := httptest.NewRecorder()
			edge.New(log, env, collector).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app.js", nil))

			Expect(w.Code).To(Equal(http.StatusBadGateway))
			Eventually(func() int64 {
				return collector.Snapshot("origin").Failures
			}).Should(Equal(int64(1)))
		})

		It("should answer 502 when the binding returns no response", func() {
			env := worker.Env{Assets: worker.FetcherFunc(func(*http.Request) (*http.Response, error) {
				return nil, nil
			})}

			w := httptest.NewRecorder()
			Expect(func() {
				edge.New(log, env, collector).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app.js", nil))
			}).NotTo(Panic())

			Expect(w.Code).To(Equal(http.StatusBadGateway))
			Eventually(func() int64 {
				return collector.Snapshot("origin").Failures
			}).Should(Equal(int64(1)))
		})

		It("should write nothing when the client went away", func() {
			reqCtx, reqCancel := context.WithCancel(context.Background())
			reqCancel()

			env := worker.Env{Assets: worker.FetcherFunc(func(r *http.Request) (*http.Response, error) {
				return nil, r.Context().Err()
			})}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/slow.js", nil).WithContext(reqCtx)
			edge.New(log, env, nil).ServeHTTP(w, req)

			Expect(w.Body.Len()).To(BeZero())
		})
	})
})
