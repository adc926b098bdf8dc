package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func study(id, criteria string) map[string]interface{} {
	return map[string]interface{}{
		"protocolSection": map[string]interface{}{
			"identificationModule": map[string]interface{}{"nctId": id},
			"eligibilityModule":    map[string]interface{}{"eligibilityCriteria": criteria},
		},
	}
}

func studies(prefix string, n int) []interface{} {
	out := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, study(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("criteria %s%d", prefix, i)))
	}
	return out
}

// pagedRegistry serves pages keyed by pageToken ("" is the first page) and
// counts requests.
type pagedRegistry struct {
	t        *testing.T
	pages    map[string]map[string]interface{}
	requests int32
}

func (p *pagedRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&p.requests, 1)
	page, ok := p.pages[r.URL.Query().Get("pageToken")]
	if !ok {
		p.t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func newRegistry(t *testing.T, pages map[string]map[string]interface{}) (*pagedRegistry, *Client) {
	reg := &pagedRegistry{t: t, pages: pages}
	server := httptest.NewServer(reg)
	t.Cleanup(server.Close)
	return reg, NewClient(server.URL, 5*time.Second, testLogger())
}

func TestClient_QueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v2/studies", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "Breast Cancer", q.Get("query.cond"))
		assert.Equal(t, "AREA[Phase](PHASE4 OR PHASE3)AND AREA[LocationCountry](United States)", q.Get("query.term"))
		assert.Equal(t, "RECRUITING", q.Get("filter.overallStatus"))
		assert.Equal(t, "3", q.Get("pageSize"))
		assert.Empty(t, q.Get("pageToken"))

		json.NewEncoder(w).Encode(map[string]interface{}{"studies": studies("NCT", 1)})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, testLogger())
	result := client.SearchRecruitingTrials(context.Background(), "Breast Cancer", 3)

	assert.Equal(t, []string{"NCT0"}, result.NCTIDs)
	assert.Equal(t, []string{"criteria NCT0"}, result.EligibilityCriteria)
}

func TestClient_FewerThanCapWithoutToken(t *testing.T) {
	reg, client := newRegistry(t, map[string]map[string]interface{}{
		"": {"studies": studies("A", 2)},
	})

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 5)

	assert.Equal(t, 2, result.Len())
	assert.Len(t, result.EligibilityCriteria, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&reg.requests))
}

func TestClient_StopsMidPageAtCap(t *testing.T) {
	reg, client := newRegistry(t, map[string]map[string]interface{}{
		"": {"studies": studies("A", 5), "nextPageToken": "p2"},
	})

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Equal(t, []string{"A0", "A1", "A2"}, result.NCTIDs)
	assert.Len(t, result.EligibilityCriteria, 3)
	assert.EqualValues(t, 1, atomic.LoadInt32(&reg.requests))
}

func TestClient_ExactCapDoesNotFetchNextPage(t *testing.T) {
	reg, client := newRegistry(t, map[string]map[string]interface{}{
		"": {"studies": studies("A", 3), "nextPageToken": "p2"},
	})

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Equal(t, 3, result.Len())
	assert.EqualValues(t, 1, atomic.LoadInt32(&reg.requests))
}

func TestClient_FollowsContinuationTokens(t *testing.T) {
	reg, client := newRegistry(t, map[string]map[string]interface{}{
		"":   {"studies": studies("A", 1), "nextPageToken": "p2"},
		"p2": {"studies": studies("B", 1), "nextPageToken": "p3"},
		"p3": {"studies": studies("C", 2), "nextPageToken": "p4"},
	})

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Equal(t, []string{"A0", "B0", "C0"}, result.NCTIDs)
	assert.Equal(t, []string{"criteria A0", "criteria B0", "criteria C0"}, result.EligibilityCriteria)
	assert.EqualValues(t, 3, atomic.LoadInt32(&reg.requests))
}

func TestClient_ZeroCapStillFetchesOnce(t *testing.T) {
	reg, client := newRegistry(t, map[string]map[string]interface{}{
		"": {"studies": studies("A", 2), "nextPageToken": "p2"},
	})

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 0)

	assert.Equal(t, 0, result.Len())
	assert.NotNil(t, result.NCTIDs)
	assert.NotNil(t, result.EligibilityCriteria)
	assert.EqualValues(t, 1, atomic.LoadInt32(&reg.requests))
}

func TestClient_NegativeCapBehavesLikeZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("pageSize"))
		json.NewEncoder(w).Encode(map[string]interface{}{"studies": studies("A", 1)})
	}))
	defer server.Close()

	result := NewClient(server.URL, time.Second, testLogger()).SearchRecruitingTrials(context.Background(), "asthma", -2)
	assert.Equal(t, 0, result.Len())
}

func TestClient_MissingFieldsUseSentinel(t *testing.T) {
	_, client := newRegistry(t, map[string]map[string]interface{}{
		"": {"studies": []interface{}{
			map[string]interface{}{"protocolSection": map[string]interface{}{
				"identificationModule": map[string]interface{}{},
				"eligibilityModule":    map[string]interface{}{"eligibilityCriteria": "Adults 18+"},
			}},
			map[string]interface{}{"protocolSection": map[string]interface{}{
				"identificationModule": map[string]interface{}{"nctId": "NCT001"},
				"eligibilityModule":    map[string]interface{}{},
			}},
			map[string]interface{}{},
		}},
	})

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 5)

	assert.Equal(t, []string{Unknown, "NCT001", Unknown}, result.NCTIDs)
	assert.Equal(t, []string{"Adults 18+", Unknown, Unknown}, result.EligibilityCriteria)
}

func TestClient_ErrorStatusReturnsPartialResults(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{"studies": studies("A", 1), "nextPageToken": "p2"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, testLogger())

	result := client.SearchRecruitingTrials(context.Background(), "asthma", 3)
	assert.Equal(t, []string{"A0"}, result.NCTIDs)
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))

	result, err := client.FetchRecruitingTrials(context.Background(), "asthma", 3)
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "maintenance")
	assert.Equal(t, []string{"A0"}, result.NCTIDs)
}

func TestClient_ErrorOnFirstPageReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	result := NewClient(server.URL, time.Second, testLogger()).SearchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Equal(t, 0, result.Len())
	assert.Equal(t, [2][]string{{}, {}}, result.Pair())
}

func TestClient_MalformedBodyReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	result, err := NewClient(server.URL, time.Second, testLogger()).FetchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Error(t, err)
	assert.Equal(t, 0, result.Len())
}

func TestClient_TimeoutAbortsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{"studies": studies("A", 1)})
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond, testLogger())
	result, err := client.FetchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Error(t, err)
	assert.Equal(t, 0, result.Len())
}

func TestClient_Idempotent(t *testing.T) {
	_, client := newRegistry(t, map[string]map[string]interface{}{
		"":   {"studies": studies("A", 2), "nextPageToken": "p2"},
		"p2": {"studies": studies("B", 2)},
	})

	first := client.SearchRecruitingTrials(context.Background(), "asthma", 3)
	second := client.SearchRecruitingTrials(context.Background(), "asthma", 3)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A0", "A1", "B0"}, first.NCTIDs)
}

func TestClient_ResultsAlwaysAlignedAndCapped(t *testing.T) {
	_, client := newRegistry(t, map[string]map[string]interface{}{
		"":   {"studies": studies("A", 2), "nextPageToken": "p2"},
		"p2": {"studies": studies("B", 3), "nextPageToken": "p3"},
		"p3": {"studies": studies("C", 1)},
	})

	for limit := 0; limit <= 8; limit++ {
		result := client.SearchRecruitingTrials(context.Background(), "asthma", limit)
		assert.Equal(t, len(result.NCTIDs), len(result.EligibilityCriteria), "limit %d", limit)
		assert.LessOrEqual(t, result.Len(), limit, "limit %d", limit)
		if limit <= 6 {
			assert.Equal(t, limit, result.Len(), "limit %d", limit)
		} else {
			assert.Equal(t, 6, result.Len(), "limit %d", limit)
		}
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/version", r.URL.Path)
		w.Write([]byte(`{"apiVersion":"2.0.3"}`))
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL, time.Second, testLogger()).Ping(context.Background()))
}

func TestSearchResult_PairNil(t *testing.T) {
	var r SearchResult
	pair := r.Pair()

	encoded, err := json.Marshal(pair)
	require.NoError(t, err)
	assert.JSONEq(t, `[[],[]]`, string(encoded))
}
