package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	restTimeout     = 60 * time.Second
	idleConnTimeout = 600 * time.Second
)

// restClient 提供方共用的 REST 客户端；连接保活复用
type restClient struct {
	base    string
	headers map[string]string
	hc      *http.Client
}

func newRESTClient(host string, headers map[string]string) *restClient {
	return &restClient{
		base:    strings.TrimRight(host, "/"),
		headers: headers,
		hc: &http.Client{
			Timeout: restTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     idleConnTimeout,
			},
		},
	}
}

func (r *restClient) Close() error {
	r.hc.CloseIdleConnections()
	return nil
}

// doJSON 发送 JSON 负载并解析 JSON 响应；out 为 nil 时丢弃响应体
func (r *restClient) doJSON(ctx context.Context, method, path string, query url.Values, payload interface{}, out interface{}) error {
	var body []byte
	contentType := ""
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = encoded
		contentType = "application/json"
	}
	return r.doRaw(ctx, method, path, query, body, contentType, out)
}

// doRaw 发送原始字节负载
func (r *restClient) doRaw(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, out interface{}) error {
	u := r.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 256))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.NewDecoder(bytes.NewReader(data)).Decode(out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
