// Package reddit publishes stylesheet images to a subreddit.
package reddit

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"EthTicker/internal/domain/models"
	"EthTicker/internal/service/ratelimit"
	xhttp "EthTicker/pkg/http"
	"EthTicker/pkg/logger"
)

const limiterKey = "reddit"

// errors reddit reports for the request itself; retrying cannot fix them
var permanentCodes = map[string]bool{
	"BAD_CSS_NAME":       true,
	"IMAGE_ERROR":        true,
	"TOO_MUCH_FLAIR_CSS": true,
	"SUBREDDIT_NOEXIST":  true,
}

type Config struct {
	BaseURL       string
	AccessToken   string
	Subreddit     string
	UserAgent     string
	RatePerMinute int
}

// Client implements repository.Remote against the subreddit stylesheet API.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

func New(cfg Config, httpClient *xhttp.Client, limiter *ratelimit.Limiter, log *logger.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 60
	}
	return &Client{cfg: cfg, http: httpClient, limiter: limiter, log: log}
}

// UploadArtifact uploads a stylesheet image (kind img) or the subreddit banner (kind banner).
func (c *Client) UploadArtifact(ctx context.Context, name string, kind models.ArtifactKind, data []byte) error {
	const op = "upload_sr_img"

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":        name,
		"upload_type": string(kind),
		"img_type":    imageType(data),
		"header":      "0",
		"api_type":    "json",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("build upload: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", name+"."+imageType(data))
	if err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}

	respBody, err := c.do(ctx, op, xhttp.MethodPost, "/api/upload_sr_img", body.Bytes(), w.FormDataContentType())
	if err != nil {
		return err
	}
	if err := apiErrors(op, respBody); err != nil {
		return err
	}
	c.log.Debug("reddit image uploaded",
		logger.String("name", name),
		logger.String("kind", string(kind)),
		logger.String("img_src", gjson.GetBytes(respBody, "img_src").String()),
	)
	return nil
}

// Finalize re-saves the current stylesheet unchanged so reddit serves the newly uploaded images.
func (c *Client) Finalize(ctx context.Context, reason string) error {
	const op = "subreddit_stylesheet"

	current, err := c.do(ctx, op, xhttp.MethodGet, "/about/stylesheet", nil, "")
	if err != nil {
		return err
	}
	sheet := gjson.GetBytes(current, "data.stylesheet")
	if !sheet.Exists() {
		return &models.RemoteError{Op: op, Message: "stylesheet missing from response", Transient: true}
	}

	form := url.Values{
		"op":                  {"save"},
		"reason":              {reason},
		"stylesheet_contents": {sheet.String()},
		"api_type":            {"json"},
	}
	respBody, err := c.do(ctx, op, xhttp.MethodPost, "/api/subreddit_stylesheet", []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	return apiErrors(op, respBody)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, contentType string) ([]byte, error) {
	perSec := float64(c.cfg.RatePerMinute) / 60
	if !c.limiter.Allow(limiterKey, float64(c.cfg.RatePerMinute), perSec) {
		return nil, &models.RemoteError{Op: op, Status: http.StatusTooManyRequests, Message: "local rate limit", Transient: true}
	}

	headers := map[string]string{
		"Authorization": "bearer " + c.cfg.AccessToken,
		"User-Agent":    c.cfg.UserAgent,
		"Accept":        "application/json",
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	opts := &xhttp.RequestOptions{
		Method:      method,
		URL:         c.cfg.BaseURL + "/r/" + url.PathEscape(c.cfg.Subreddit) + path,
		Headers:     headers,
		QueryParams: map[string][]string{"raw_json": {"1"}},
	}
	if body != nil {
		opts.Body = body
	}

	status, respBody, err := c.http.Fetch(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.RemoteError{Op: op, Message: err.Error(), Transient: true}
	}
	if status < 200 || status >= 300 {
		return nil, models.ClassifyStatus(op, status, http.StatusText(status))
	}
	return respBody, nil
}

// apiErrors turns reddit's in-body error list into a RemoteError.
func apiErrors(op string, body []byte) error {
	list := gjson.GetBytes(body, "json.errors")
	if !list.Exists() {
		list = gjson.GetBytes(body, "errors")
	}
	if !list.IsArray() || len(list.Array()) == 0 {
		return nil
	}

	var codes []string
	transient := true
	for _, e := range list.Array() {
		code := e.Get("0").String()
		if code == "" {
			code = e.String()
		}
		codes = append(codes, code)
		if permanentCodes[code] {
			transient = false
		}
	}
	return &models.RemoteError{Op: op, Status: http.StatusOK, Message: strings.Join(codes, ","), Transient: transient}
}

func imageType(data []byte) string {
	if bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		return "jpg"
	}
	return "png"
}
