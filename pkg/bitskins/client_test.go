package bitskins

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCode string

func (f fixedCode) Code(string, time.Time) (string, error) { return string(f), nil }

type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (r *recorder) last() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// newTestClient serves body for every request and records what it got.
func newTestClient(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.requests = append(rec.requests, r)
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	return NewClient("key", "JBSWY3DPEHPK3PXP",
		WithBaseURL(server.URL),
		WithCodeGenerator(fixedCode("123456")),
	), rec
}

const successBody = `{"status":"success","data":{"available_balance":"12.50","pending_withdrawals":"0.00"}}`
const failBody = `{"status":"fail","data":{"error_message":"Invalid API key."}}`

func boolPtr(b bool) *bool { return &b }

func allOperations() map[string]func(context.Context, *Client) (*Response, error) {
	return map[string]func(context.Context, *Client) (*Response, error){
		"balance": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetAccountBalance(ctx)
		},
		"all prices": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetAllItemPrices(ctx, 0)
		},
		"price data": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetMarketPriceData(ctx, Dota2)
		},
		"inventory": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetAccountInventory(ctx, 0, 2)
		},
		"on sale": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetInventoryOnSale(ctx, InventoryQuery{})
		},
		"specific items": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetSpecificItemsOnSale(ctx, 0, []string{"1"})
		},
		"reset prices": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetResetPriceItems(ctx, 0, 0)
		},
		"money events": func(ctx context.Context, c *Client) (*Response, error) {
			return c.GetMoneyEvents(ctx, 0)
		},
		"withdraw": func(ctx context.Context, c *Client) (*Response, error) {
			return c.WithdrawMoney(ctx, decimal.RequireFromString("10"), PayPal)
		},
		"buy": func(ctx context.Context, c *Client) (*Response, error) {
			return c.BuyItems(ctx, BuyOrder{ItemIDs: []string{"1"}, Prices: []string{"1.00"}})
		},
		"sell": func(ctx context.Context, c *Client) (*Response, error) {
			return c.SellItems(ctx, SellOrder{ItemIDs: []string{"1"}, Prices: []string{InstantPrice}})
		},
	}
}

func TestEveryOperation_SuccessReturnsPayloadUnchanged(t *testing.T) {
	for name, op := range allOperations() {
		t.Run(name, func(t *testing.T) {
			client, rec := newTestClient(t, http.StatusOK, successBody)

			resp, err := op(context.Background(), client)
			require.NoError(t, err)
			assert.Equal(t, "success", resp.Status)
			assert.JSONEq(t, successBody, string(resp.Raw()))

			q := rec.last().URL.Query()
			assert.Equal(t, "key", q.Get("api_key"))
			assert.Equal(t, "123456", q.Get("code"))
		})
	}
}

func TestEveryOperation_FailEnvelopeBecomesRemoteAPIError(t *testing.T) {
	for name, op := range allOperations() {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, http.StatusUnauthorized, failBody)

			_, err := op(context.Background(), client)
			require.Error(t, err)

			var remote *RemoteAPIError
			require.True(t, errors.As(err, &remote))
			assert.Equal(t, "Invalid API key.", err.Error())
			assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
			assert.True(t, errors.Is(err, ErrRemote))
			assert.False(t, errors.Is(err, ErrLockContention))
		})
	}
}

func TestCall_BuildsEndpointURL(t *testing.T) {
	client, rec := newTestClient(t, http.StatusOK, successBody)

	_, err := client.GetAccountInventory(context.Background(), Rust, 3)
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/get_my_inventory/", req.URL.Path)
	assert.Equal(t, "api_key=key&code=123456&page=3&app_id=252490", req.URL.RawQuery)
}

func TestCall_FreshCodePerRequest(t *testing.T) {
	var calls int32
	gen := codeFunc(func(string, time.Time) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		return fmt.Sprintf("%06d", n), nil
	})
	client, rec := newTestClient(t, http.StatusOK, successBody)
	client.codes = gen

	for i := 1; i <= 3; i++ {
		_, err := client.GetAccountBalance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%06d", i), rec.last().URL.Query().Get("code"))
	}
}

type codeFunc func(string, time.Time) (string, error)

func (f codeFunc) Code(secret string, at time.Time) (string, error) { return f(secret, at) }

func TestCall_TOTPFromSecret(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	client, rec := newTestClient(t, http.StatusOK, successBody)
	client.codes = totpGenerator{}
	withClock(func() time.Time { return at })(client)

	_, err := client.GetAccountBalance(context.Background())
	require.NoError(t, err)

	want, err := totpGenerator{}.Code("JBSWY3DPEHPK3PXP", at)
	require.NoError(t, err)
	assert.Equal(t, want, rec.last().URL.Query().Get("code"))
	assert.Len(t, want, 6)
}

func TestCall_InvalidSecretIsUsageError(t *testing.T) {
	client, rec := newTestClient(t, http.StatusOK, successBody)
	client.codes = totpGenerator{}
	client.creds = NewCredentials("key", "not base32 !!")

	_, err := client.GetAccountBalance(context.Background())
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Equal(t, 0, rec.count())
}

func TestCall_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>bad gateway</html>"},
		{"missing status", `{"data":{}}`},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.StatusBadGateway, tt.body)

			_, err := client.GetAccountBalance(context.Background())
			var perr *ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
			assert.True(t, errors.Is(err, ErrProtocol))
		})
	}
}

func TestCall_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient("key", "secret", WithBaseURL(url), WithCodeGenerator(fixedCode("1")))
	_, err := client.GetAccountBalance(context.Background())

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, "get_account_balance", terr.Op)
}

func TestCall_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient("key", "secret", WithBaseURL(server.URL), WithCodeGenerator(fixedCode("1")))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.BuyItems(ctx, BuyOrder{ItemIDs: []string{"1"}, Prices: []string{"2"}})
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestResponse_DecodeData(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, successBody)

	resp, err := client.GetAccountBalance(context.Background())
	require.NoError(t, err)

	var b Balance
	require.NoError(t, resp.DecodeData(&b))
	assert.True(t, b.AvailableBalance.Equal(decimal.RequireFromString("12.5")))

	out, err := resp.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, successBody, string(out))
}

func TestCredentials_Redacted(t *testing.T) {
	creds := NewCredentials("my-api-key", "my-secret")
	for _, s := range []string{fmt.Sprint(creds), fmt.Sprintf("%v %+v %#v", creds, creds, creds)} {
		assert.False(t, strings.Contains(s, "my-api-key"))
		assert.False(t, strings.Contains(s, "my-secret"))
	}
}

func TestWithdrawMoney_ConcurrentLockContention(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			fmt.Fprint(w, `{"status":"fail","data":{"error_message":"Failed to acquire lock. Please try again."}}`)
			return
		}
		fmt.Fprint(w, `{"status":"fail","data":{"error_message":"Amount exceeds available balance."}}`)
	}))
	defer server.Close()

	client := NewClient("key", "secret", WithBaseURL(server.URL), WithCodeGenerator(fixedCode("1")))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.WithdrawMoney(context.Background(), decimal.RequireFromString("20"), Skrill)
		}(i)
	}
	wg.Wait()

	var locked, other int
	for _, err := range errs {
		require.True(t, errors.Is(err, ErrRemote))
		if errors.Is(err, ErrLockContention) {
			locked++
		} else {
			other++
		}
	}
	assert.Equal(t, 1, locked)
	assert.Equal(t, 1, other)

	_, err := client.WithdrawMoney(context.Background(), decimal.RequireFromString("20"), Skrill)
	assert.EqualError(t, err, "Amount exceeds available balance.")
}
