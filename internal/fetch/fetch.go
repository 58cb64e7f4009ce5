// 包 fetch 封装上游 HTTP 客户端（代理/超时/重试），用于抓取运动员主页、名单页与 JSON 接口。
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// TokenHeader 为上游结果接口要求的访问令牌请求头，令牌由调用方提供，原样透传。
const TokenHeader = "Anettokens"

// MaxHTMLBytes 为单个页面允许的最大字节数。
const MaxHTMLBytes = 4 << 20

// ErrBodyTooLarge 表示页面超过 MaxHTMLBytes；不截断解析，避免得到残缺记录。
var ErrBodyTooLarge = errors.New("response body too large")

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// Client 为带重试的上游客户端。
type Client struct {
	http *resty.Client
}

// Options 为客户端构造参数。
type Options struct {
	BaseURL    string
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
}

// New 创建客户端，支持 http/https 代理、基础超时与按状态码重试。
func New(opts Options) (*Client, error) {
	if opts.ProxyHTTP != "" {
		if _, err := url.Parse(opts.ProxyHTTP); err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
	}
	if opts.ProxyHTTPS != "" {
		if _, err := url.Parse(opts.ProxyHTTPS); err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	// 使用常见浏览器 UA，减少 403/反爬误判；支持环境变量覆盖（XC_UA）
	ua := os.Getenv("XC_UA")
	if ua == "" {
		ua = defaultUA
	}
	rc := resty.New().
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", ua).
		SetRetryCount(opts.Retry).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if opts.BaseURL != "" {
		rc.SetBaseURL(opts.BaseURL)
	}
	return &Client{http: rc}, nil
}

// GetHTML 请求页面并解析为 goquery 文档；超过 MaxHTMLBytes 时返回 ErrBodyTooLarge。
func (c *Client) GetHTML(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET %s: http status: %s", path, res.Status())
	}
	body := res.Body()
	if len(body) > MaxHTMLBytes {
		return nil, fmt.Errorf("GET %s: %d bytes: %w", path, len(body), ErrBodyTooLarge)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", path, err)
	}
	return doc, nil
}

// GetJSON 以 GET 请求 JSON 接口并解码到 out；token 非空时附加访问令牌请求头。
func (c *Client) GetJSON(ctx context.Context, path, token string, out any) error {
	req := c.http.R().SetContext(ctx).SetHeader("Accept", "application/json")
	if token != "" {
		req.SetHeader(TokenHeader, token)
	}
	res, err := req.Get(path)
	return decode(res, err, http.MethodGet, path, out)
}

// PostJSON 以 POST 发送 JSON 请求体并解码响应到 out。
func (c *Client) PostJSON(ctx context.Context, path, token string, body, out any) error {
	req := c.http.R().SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if token != "" {
		req.SetHeader(TokenHeader, token)
	}
	res, err := req.Post(path)
	return decode(res, err, http.MethodPost, path, out)
}

func decode(res *resty.Response, err error, method, path string, out any) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s %s: http status: %s", method, path, res.Status())
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("decode json %s: %w", path, err)
	}
	return nil
}
