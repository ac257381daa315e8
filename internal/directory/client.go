package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/valyala/fasthttp"
)

const defaultClientTimeout = 5 * time.Second

// Client talks to a directory server over HTTP.
type Client struct {
	base    string
	http    *fasthttp.Client
	timeout time.Duration
}

func NewClient(base string, hc *fasthttp.Client) *Client {
	if hc == nil {
		hc = &fasthttp.Client{Name: "bluffparty"}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc, timeout: defaultClientTimeout}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(method)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return 0, fmt.Errorf("directory %s %s: %w", method, path, err)
	}
	code := resp.StatusCode()
	if out != nil && code < 300 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return code, fmt.Errorf("directory %s %s: %w", method, path, err)
		}
	}
	return code, nil
}

// Allocate reserves a fresh room code.
func (c *Client) Allocate(ctx context.Context) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	code, err := c.do(ctx, fasthttp.MethodPost, "/rooms", nil, &out)
	if err != nil {
		return "", err
	}
	if code != fasthttp.StatusCreated {
		return "", fmt.Errorf("allocate room: status %d", code)
	}
	return out.Code, nil
}

func (c *Client) Register(ctx context.Context, room, addr string) error {
	code, err := c.do(ctx, fasthttp.MethodPut, "/rooms/"+room, registerRequest{Addr: addr}, nil)
	if err != nil {
		return err
	}
	if code != fasthttp.StatusNoContent {
		return fmt.Errorf("register room %s: status %d", room, code)
	}
	return nil
}

// Lookup returns the room's current host. An unknown room, or one whose
// code is reserved but has no host yet, is transport.ErrRoomNotFound.
func (c *Client) Lookup(ctx context.Context, room string) (Entry, error) {
	var e Entry
	code, err := c.do(ctx, fasthttp.MethodGet, "/rooms/"+room, nil, &e)
	switch {
	case err != nil:
		return Entry{}, err
	case code == fasthttp.StatusNotFound:
		return Entry{}, fmt.Errorf("%w: %s", transport.ErrRoomNotFound, room)
	case code != fasthttp.StatusOK:
		return Entry{}, fmt.Errorf("lookup room %s: status %d", room, code)
	}
	return e, nil
}

func (c *Client) Remove(ctx context.Context, room string) error {
	code, err := c.do(ctx, fasthttp.MethodDelete, "/rooms/"+room, nil, nil)
	if err != nil {
		return err
	}
	if code != fasthttp.StatusNoContent {
		return fmt.Errorf("remove room %s: status %d", room, code)
	}
	return nil
}
