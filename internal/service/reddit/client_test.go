package reddit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/internal/domain/models"
	"EthTicker/internal/service/ratelimit"
	xhttp "EthTicker/pkg/http"
	"EthTicker/pkg/logger"
)

type fakeReddit struct {
	mu        sync.Mutex
	uploads   []map[string]string
	saved     []map[string]string
	status    int
	uploadRes string
}

func (f *fakeReddit) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/r/ethtrader/api/upload_sr_img", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "ethticker-test", r.Header.Get("User-Agent"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)

		f.mu.Lock()
		f.uploads = append(f.uploads, map[string]string{
			"name":        r.FormValue("name"),
			"upload_type": r.FormValue("upload_type"),
			"img_type":    r.FormValue("img_type"),
			"data":        string(data),
		})
		status, res := f.status, f.uploadRes
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if res == "" {
			res = `{"errors":[],"img_src":"https://img/x.png"}`
		}
		_, _ = w.Write([]byte(res))
	})
	mux.HandleFunc("/r/ethtrader/about/stylesheet", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"kind":"stylesheet","data":{"stylesheet":".ticker{background:url(%%upper-ticker%%)}"}}`))
	})
	mux.HandleFunc("/r/ethtrader/api/subreddit_stylesheet", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.saved = append(f.saved, map[string]string{
			"op":       r.PostFormValue("op"),
			"reason":   r.PostFormValue("reason"),
			"contents": r.PostFormValue("stylesheet_contents"),
		})
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"json":{"errors":[]}}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeReddit, limiter *ratelimit.Limiter) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return New(Config{
		BaseURL:     srv.URL + "/",
		AccessToken: "token",
		Subreddit:   "ethtrader",
		UserAgent:   "ethticker-test",
	}, xhttp.NewClient(), limiter, logger.NewNop())
}

func TestUploadArtifactSendsMultipart(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, nil)

	require.NoError(t, c.UploadArtifact(context.Background(), "upper-ticker", models.KindImage, []byte("\x89PNGdata")))
	require.NoError(t, c.UploadArtifact(context.Background(), "banner", models.KindBanner, []byte("\xFF\xD8\xFFjpeg")))

	require.Len(t, f.uploads, 2)
	assert.Equal(t, "upper-ticker", f.uploads[0]["name"])
	assert.Equal(t, "img", f.uploads[0]["upload_type"])
	assert.Equal(t, "png", f.uploads[0]["img_type"])
	assert.Equal(t, "\x89PNGdata", f.uploads[0]["data"])
	assert.Equal(t, "banner", f.uploads[1]["upload_type"])
	assert.Equal(t, "jpg", f.uploads[1]["img_type"])
}

func TestUploadArtifactClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		res       string
		transient bool
	}{
		{"server error", http.StatusBadGateway, "", true},
		{"throttled", http.StatusTooManyRequests, "", true},
		{"too large", http.StatusRequestEntityTooLarge, "", false},
		{"unauthorized", http.StatusUnauthorized, "", false},
		{"api exception", 0, `{"errors":[["RATELIMIT","slow down","ratelimit"]]}`, true},
		{"bad image", 0, `{"errors":[["IMAGE_ERROR","bad image","file"]]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeReddit{status: tt.status, uploadRes: tt.res}, nil)
			err := c.UploadArtifact(context.Background(), "x", models.KindImage, []byte("png"))
			require.Error(t, err)
			assert.Equal(t, tt.transient, errors.Is(err, models.ErrTransientRemote))
			assert.Equal(t, !tt.transient, errors.Is(err, models.ErrPermanentRemote))
		})
	}
}

func TestFinalizeResavesStylesheet(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, nil)

	require.NoError(t, c.Finalize(context.Background(), "ticker3"))
	require.Len(t, f.saved, 1)
	assert.Equal(t, map[string]string{
		"op":       "save",
		"reason":   "ticker3",
		"contents": ".ticker{background:url(%%upper-ticker%%)}",
	}, f.saved[0])
}

func TestLocalRateLimitIsTransient(t *testing.T) {
	limiter := ratelimit.NewWithClock(clockwork.NewFakeClockAt(time.Now()))
	c := newTestClient(t, &fakeReddit{}, limiter)
	c.cfg.RatePerMinute = 1

	require.NoError(t, c.UploadArtifact(context.Background(), "a", models.KindImage, []byte("png")))
	err := c.UploadArtifact(context.Background(), "b", models.KindImage, []byte("png"))
	assert.True(t, errors.Is(err, models.ErrTransientRemote))
}
