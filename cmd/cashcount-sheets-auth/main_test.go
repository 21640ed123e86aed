package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCallbackHandler(t *testing.T) {
	results := make(chan callbackResult, 1)
	h := callbackHandler("s1", results)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, results)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, "abc", res.code)
}

func TestCallbackHandlerOnlyOnce(t *testing.T) {
	results := make(chan callbackResult, 1)
	h := callbackHandler("s1", results)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=a", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=b", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCallbackHandlerReportsDenial(t *testing.T) {
	results := make(chan callbackResult, 1)
	rec := httptest.NewRecorder()
	callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := <-results
	assert.ErrorContains(t, res.err, "access_denied")
}

func TestAuthorizeExchangesCode(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	conf := &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenSrv.URL},
		RedirectURL:  "http://" + ln.Addr().String() + "/callback",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		// retried until authorize is serving
		for ctx.Err() == nil {
			resp, err := http.Get("http://" + ln.Addr().String() + "/callback?state=s1&code=the-code")
			if err == nil {
				resp.Body.Close()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	tok, err := authorize(ctx, ln, conf, "s1")
	require.NoError(t, err)
	assert.Equal(t, "rt", tok.RefreshToken)
}

func TestAuthorizeTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = authorize(ctx, ln, &oauth2.Config{}, "s1")
	assert.EqualError(t, err, "authorization timed out")
}
