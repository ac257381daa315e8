package directory

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_Alphabet(t *testing.T) {
	for range 50 {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, RoomCodeLen)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(RoomCodeChars, r), "unexpected %q", r)
		}
	}
}

func TestRegistry_AllocateReservesCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := NewRegistry(ctx)

	seen := map[string]bool{}
	for range 20 {
		reply := make(chan AllocateResult, 1)
		reg.Inbox() <- Allocate{Reply: reply}
		res := <-reply
		require.NoError(t, res.Err)
		assert.False(t, seen[res.Code], "code handed out twice")
		seen[res.Code] = true
	}
}

func TestRegistry_RegisterReplacesHost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := NewRegistry(ctx)

	reg.Inbox() <- Register{Code: "ABCD", Addr: "10.0.0.1:9000"}
	reg.Inbox() <- Register{Code: "ABCD", Addr: "10.0.0.2:9000"}

	reply := make(chan Entry, 1)
	reg.Inbox() <- Lookup{Code: "ABCD", Reply: reply}
	assert.Equal(t, "10.0.0.2:9000", (<-reply).Addr)

	reg.Inbox() <- Remove{Code: "ABCD"}
	reg.Inbox() <- Lookup{Code: "ABCD", Reply: reply}
	assert.Empty(t, (<-reply).Code)
}

func newServer(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := httptest.NewServer(NewAPI(NewRegistry(ctx), nil).Routes())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, nil), srv
}

func TestClient_RoundTrip(t *testing.T) {
	c, _ := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	code, err := c.Allocate(ctx)
	require.NoError(t, err)
	require.Len(t, code, RoomCodeLen)

	// Reserved but nobody is listening yet.
	_, err = c.Lookup(ctx, code)
	assert.ErrorIs(t, err, transport.ErrRoomNotFound)

	require.NoError(t, c.Register(ctx, code, "127.0.0.1:4567"))
	e, err := c.Lookup(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, code, e.Code)
	assert.Equal(t, "127.0.0.1:4567", e.Addr)

	// Codes are case-insensitive on the way in.
	e, err = c.Lookup(ctx, strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4567", e.Addr)

	require.NoError(t, c.Remove(ctx, code))
	_, err = c.Lookup(ctx, code)
	assert.ErrorIs(t, err, transport.ErrRoomNotFound)
}

func TestAPI_RegisterRejectsEmptyAddr(t *testing.T) {
	_, srv := newServer(t)
	resp, err := http.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/rooms/ABCD", strings.NewReader(`{"addr":""}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_QRCode(t *testing.T) {
	c, srv := newServer(t)
	ctx := context.Background()

	resp, err := http.Get(srv.URL + "/rooms/ZZZZ/qr.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	code, err := c.Allocate(ctx)
	require.NoError(t, err)
	resp, err = http.Get(srv.URL + "/rooms/" + code + "/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestAPI_Healthz(t *testing.T) {
	_, srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
