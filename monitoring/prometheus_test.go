package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRejectedTx(t *testing.T) {
	before := testutil.ToFloat64(nodeMetrics.rejectedTxCount.WithLabelValues(string(TxInvalidAmount)))
	RecordRejectedTx(TxInvalidAmount)
	RecordRejectedTx(TxInvalidAmount)
	after := testutil.ToFloat64(nodeMetrics.rejectedTxCount.WithLabelValues(string(TxInvalidAmount)))
	assert.Equal(t, before+2, after)
}

func TestGauges(t *testing.T) {
	SetBlockHeight(7)
	SetMempoolSize(3)
	SetDifficulty(2)
	assert.Equal(t, 7.0, testutil.ToFloat64(nodeMetrics.blockHeight))
	assert.Equal(t, 3.0, testutil.ToFloat64(nodeMetrics.mempoolSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(nodeMetrics.difficulty))
}

func TestRegisterMetrics_ServesRegistry(t *testing.T) {
	InitMetrics()
	InitMetrics()
	RecordCommittedBlock("mined", 2)

	mux := http.NewServeMux()
	RegisterMetrics(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "greenledger_blocks_committed_total"))
	assert.True(t, strings.Contains(body, "greenledger_chain_height"))
}
