package fedreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDocuments(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantCount int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"count": 2,
				"results": [
					{"title": "Section 301 Modification", "publication_date": "2026-01-15", "abstract": "USTR modifies...", "html_url": "https://example.gov/1"},
					{"title": "Hardwood Investigation Notice", "publication_date": "2026-01-10", "abstract": "", "html_url": "https://example.gov/2"}
				]
			}`,
			wantCount: 2,
		},
		{
			name:    "server_error",
			status:  http.StatusServiceUnavailable,
			body:    `{"error": "down"}`,
			wantErr: "unexpected status 503",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/documents.json", r.URL.Path)
				assert.Equal(t, "China hardwood tariff 2026", r.URL.Query().Get("conditions[term]"))
				assert.Equal(t, "5", r.URL.Query().Get("per_page"))
				assert.Equal(t, "newest", r.URL.Query().Get("order"))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL))
			resp, err := client.SearchDocuments(context.Background(), SearchParams{
				Term:    "China hardwood tariff 2026",
				PerPage: 5,
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, resp.Count)
			require.Len(t, resp.Results, tt.wantCount)
			assert.Equal(t, "Section 301 Modification", resp.Results[0].Title)
		})
	}
}

func TestSearchDocuments_TypeFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PRESDOCU", r.URL.Query().Get("conditions[type][]"))
		_, _ = w.Write([]byte(`{"count": 0, "results": []}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	resp, err := client.SearchDocuments(context.Background(), SearchParams{
		Term: "tariff",
		Type: "PRESDOCU",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestDefaultSearchTerms(t *testing.T) {
	terms := DefaultSearchTerms()
	require.Len(t, terms, 3)
	assert.Contains(t, terms, "Section 301 tariff updates")
}
