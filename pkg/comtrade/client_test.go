package comtrade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTradeData(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"count": 2, "data": [{"cmdCode": "4407"}, {"cmdCode": "4408"}]}`,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "internal"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error": "quota"}`,
			wantErr: "unexpected status 429",
		},
		{
			name:    "malformed_payload",
			status:  http.StatusOK,
			body:    `{not json`,
			wantErr: "malformed payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/getDA", r.URL.Path)

				// Zero-value params resolve to the US-China import defaults.
				assert.Equal(t, "842", r.URL.Query().Get("reporterCode"))
				assert.Equal(t, "156", r.URL.Query().Get("partnerCode"))
				assert.Equal(t, "M", r.URL.Query().Get("flowCode"))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL))
			payload, err := client.GetTradeData(context.Background(), Params{})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, payload)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(payload))
		})
	}
}

func TestGetTariffLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getTariffline", r.URL.Path)
		assert.Equal(t, "842", r.URL.Query().Get("reporter"))
		assert.Equal(t, "156", r.URL.Query().Get("partner"))
		assert.Equal(t, "4407", r.URL.Query().Get("cmdCode"))
		_, _ = w.Write([]byte(`{"lines": []}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	payload, err := client.GetTariffLine(context.Background(), ReporterUSA, PartnerChina, "4407")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lines": []}`, string(payload))
}

func TestGetUSChinaHardwoodTrade(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"cmdCode": "` + r.URL.Query().Get("cmdCode") + `"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	trade, err := client.GetUSChinaHardwoodTrade(context.Background())
	require.NoError(t, err)

	assert.Equal(t, HardwoodCodes(), trade.Codes)
	require.Len(t, trade.Data, len(trade.Codes))
	assert.Equal(t, int32(len(trade.Codes)), calls.Load())
	assert.False(t, trade.FetchedAt.IsZero())

	// Slots line up with codes regardless of completion order.
	for i, code := range trade.Codes {
		assert.JSONEq(t, `{"cmdCode": "`+code+`"}`, string(trade.Data[i]))
	}
}

func TestGetUSChinaHardwoodTrade_OneCodeFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cmdCode") == "4409" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetUSChinaHardwoodTrade(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hardwood code 4409")
}
