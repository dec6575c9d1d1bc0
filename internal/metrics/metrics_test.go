package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCacheLookup(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		hit    bool
		label  string
	}{
		{name: "hit increments hit counter", prefix: "test-hit", hit: true, label: ResultHit},
		{name: "miss increments miss counter", prefix: "test-miss", hit: false, label: ResultMiss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := UserCacheLookupsTotal.WithLabelValues(tt.prefix, tt.label)
			before := testutil.ToFloat64(counter)

			RecordCacheLookup(tt.prefix, tt.hit)

			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestCounters(t *testing.T) {
	auth := AuthenticationsTotal.WithLabelValues(ResultAuthenticated)
	before := testutil.ToFloat64(auth)
	RecordAuthentication(ResultAuthenticated)
	assert.Equal(t, before+1, testutil.ToFloat64(auth))

	issued := TokensIssuedTotal.WithLabelValues("access")
	before = testutil.ToFloat64(issued)
	RecordTokenIssued("access")
	assert.Equal(t, before+1, testutil.ToFloat64(issued))

	revoked := RevocationsTotal.WithLabelValues("subject")
	before = testutil.ToFloat64(revoked)
	RecordRevocation("subject")
	assert.Equal(t, before+1, testutil.ToFloat64(revoked))

	evicted := UserCacheEvictionsTotal.WithLabelValues("test-evict")
	before = testutil.ToFloat64(evicted)
	RecordEviction("test-evict")
	assert.Equal(t, before+1, testutil.ToFloat64(evicted))
}

func TestHandler(t *testing.T) {
	RecordTokenIssued("refresh")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sessionauth_token_issued_total")
}
