// Package testutil 提供测试辅助工具
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"
)

// HTTPRoundTripper 重写 HTTP 请求到测试服务器
// 用于将真实存储 API 请求重定向到 mock 服务器
type HTTPRoundTripper struct {
	base *url.URL          // 测试服务器 URL
	next http.RoundTripper // 下一个 Transport
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *HTTPRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := *req
	u := *req.URL
	u.Scheme = t.base.Scheme
	u.Host = t.base.Host
	cloned.URL = &u
	return t.next.RoundTrip(&cloned)
}

// NewTestClient 创建测试用 HTTP 客户端
// 所有请求都被重定向到给定的测试服务器
func NewTestClient(ts *httptest.Server) *http.Client {
	u, _ := url.Parse(ts.URL)
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &HTTPRoundTripper{
			base: u,
			next: http.DefaultTransport,
		},
	}
}

// StorageFile 测试存储服务器上的一个文件
type StorageFile struct {
	Status      int    // 非 200 时直接返回该状态码
	ContentType string // 响应的 Content-Type
	Body        []byte // 文件内容
}

// NewStorageServer 创建模拟文件存储服务器
// 按文件 ID 提供 GET /files/{id}/download，未知 ID 返回 404
func NewStorageServer(files map[string]StorageFile) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		f, ok := files[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if f.Status != 0 && f.Status != http.StatusOK {
			w.WriteHeader(f.Status)
			return
		}
		if f.ContentType != "" {
			w.Header().Set("Content-Type", f.ContentType)
		}
		w.Write(f.Body)
	})
	return httptest.NewServer(mux)
}
