package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/gemini-mole/internal/config"
	"github.com/sozercan/gemini-mole/internal/parser"
)

const appPage = `<html><script>window.WIZ_global_data = {"FdrFJe":"-123456789","SNlM0e":"nonce-abc:1700000000000","other":1};</script></html>`

var testCookies = map[string]string{"__Secure-1PSID": "sid-cookie", "NID": "nid"}

func testConfig() config.GeminiConfig {
	return config.GeminiConfig{
		BotServer:       "boq_test",
		Language:        "en",
		Timeout:         5 * time.Second,
		Latency:         time.Millisecond,
		WaitTime:        time.Second,
		CandidatePolicy: "abort",
		MaxAttempts:     1,
	}
}

// reply frames one candidate the way StreamGenerate does.
func reply(t *testing.T, rcid, text string) string {
	t.Helper()
	cand := make([]any, 13)
	cand[0] = rcid
	cand[1] = []any{text}
	body, err := json.Marshal([]any{nil, []any{"c_1", "r_1"}, nil, nil, []any{cand}})
	require.NoError(t, err)
	line, err := json.Marshal([]any{[]any{"wrb.fr", nil, string(body)}})
	require.NoError(t, err)
	return strings.Join([]string{")]}'", "", strconv.Itoa(len(line)), string(line), "25", `[["e",4]]`}, "\n")
}

type fakeUpstream struct {
	t *testing.T

	mu       sync.Mutex
	statuses []int
	posts    []*http.Request
	forms    []map[string][]string
	appHits  int
	appPage  string
	response string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case appPath:
		f.appHits++
		fmt.Fprint(w, f.appPage)
	case postPath:
		assert.NoError(f.t, r.ParseForm())
		f.posts = append(f.posts, r)
		f.forms = append(f.forms, r.PostForm)
		status := http.StatusOK
		if len(f.statuses) > 0 {
			status, f.statuses = f.statuses[0], f.statuses[1:]
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, f.response)
		}
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, up *fakeUpstream) *Client {
	t.Helper()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	c, err := NewClient(testConfig(), testCookies, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCookies(t *testing.T) {
	_, err := NewClient(testConfig(), nil)
	assert.Error(t, err)
}

func TestRefreshTokens(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: appPage}
	c := newTestClient(t, up)

	require.NoError(t, c.RefreshTokens(context.Background()))
	assert.Equal(t, "nonce-abc:1700000000000", c.nonce)
	assert.Equal(t, "-123456789", c.sid)
}

func TestRefreshTokensWithoutNonce(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: "<html>sign in</html>"}
	c := newTestClient(t, up)

	err := c.RefreshTokens(context.Background())
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestPostRequestShape(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: appPage, response: reply(t, "rc_1", "hi")}
	c := newTestClient(t, up)
	start := c.reqID

	_, err := c.Post(context.Background(), "hello", []string{"c_1", "r_1", ""})
	require.NoError(t, err)
	_, err = c.Post(context.Background(), "again", nil)
	require.NoError(t, err)

	require.Len(t, up.posts, 2)
	assert.Equal(t, 1, up.appHits, "nonce is fetched once")

	first := up.posts[0]
	q := first.URL.Query()
	assert.Equal(t, "boq_test", q.Get("bl"))
	assert.Equal(t, "en", q.Get("hl"))
	assert.Equal(t, "c", q.Get("rt"))
	assert.Equal(t, "-123456789", q.Get("f.sid"))
	assert.Equal(t, strconv.Itoa(start), q.Get("_reqid"))
	assert.Equal(t, strconv.Itoa(start+reqIDStep), up.posts[1].URL.Query().Get("_reqid"))
	assert.GreaterOrEqual(t, start, 1000)
	assert.Less(t, start, 10000)

	assert.Equal(t, "1", first.Header.Get("X-Same-Domain"))
	assert.Equal(t, contentType, first.Header.Get("Content-Type"))
	ck, err := first.Cookie("__Secure-1PSID")
	require.NoError(t, err)
	assert.Equal(t, "sid-cookie", ck.Value)

	form := up.forms[0]
	assert.Equal(t, "nonce-abc:1700000000000", form["at"][0])
	var outer []any
	require.NoError(t, json.Unmarshal([]byte(form["f.req"][0]), &outer))
	require.Len(t, outer, 2)
	assert.Nil(t, outer[0])
	assert.JSONEq(t, `[["hello"],null,["c_1","r_1",null]]`, outer[1].(string))

	require.NoError(t, json.Unmarshal([]byte(up.forms[1]["f.req"][0]), &outer))
	assert.JSONEq(t, `[["again"],null,null]`, outer[1].(string))
}

func TestPostWithRetryPollsUntilOK(t *testing.T) {
	up := &fakeUpstream{
		t:        t,
		appPage:  appPage,
		statuses: []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusOK},
		response: reply(t, "rc_1", "hi"),
	}
	c := newTestClient(t, up)

	resp, err := c.PostWithRetry(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, up.posts, 3)
}

func TestPostWithRetryReturnsLastResponseOnTimeout(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: appPage, statuses: []int{503, 503, 503, 503, 503, 503, 503, 503}}
	c := newTestClient(t, up)
	c.cfg.WaitTime = 0

	resp, err := c.PostWithRetry(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Len(t, up.posts, 1)
}

func TestPostWithRetryHonoursContext(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: appPage, statuses: []int{503, 503, 503}}
	c := newTestClient(t, up)
	c.cfg.Latency = time.Hour
	c.cfg.WaitTime = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.PostWithRetry(ctx, "hello", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: appPage, response: reply(t, "rc_9", "Hello there")}
	c := newTestClient(t, up)

	out, err := c.Generate(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out.Text())
	assert.Equal(t, "rc_9", out.RCID())
	assert.Equal(t, []string{"c_1", "r_1"}, out.Metadata)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		up := &fakeUpstream{t: t, appPage: appPage, statuses: []int{http.StatusUnauthorized}}
		c := newTestClient(t, up)

		_, err := c.Generate(context.Background(), "hi", nil)
		assert.True(t, errors.Is(err, ErrAuth))
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.Code)
		assert.Empty(t, c.nonce, "nonce is dropped so the next call refreshes it")
	})

	t.Run("unparseable body", func(t *testing.T) {
		up := &fakeUpstream{t: t, appPage: appPage, response: "<html>login</html>"}
		c := newTestClient(t, up)

		_, err := c.Generate(context.Background(), "hi", nil)
		assert.True(t, errors.Is(err, parser.ErrParse))
	})
}

func TestCookiesSnapshot(t *testing.T) {
	up := &fakeUpstream{t: t, appPage: appPage}
	c := newTestClient(t, up)

	got := c.Cookies()
	got["NID"] = "changed"
	assert.Equal(t, "nid", c.Cookies()["NID"])
}
