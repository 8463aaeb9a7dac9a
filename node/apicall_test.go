package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func runApiCall(t *testing.T, config map[string]any, vars model.Variables) Transition {
	n := newApiCallNode(model.Node{Id: "a1", Type: "api-call", Config: config})
	tr, err := n.Execute(context.Background(), execCtx(vars))
	require.NoError(t, err)
	return tr
}

func TestApiCallNode(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test response path extraction": testApiResponsePath,
		"test transport error captured": testApiErrorCaptured,
		"test await response suspends":  testApiAwaitResponse,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testApiResponsePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"order":{"status":"shipped"}}`))
	}))
	defer srv.Close()

	vars := model.Variables{}
	tr := runApiCall(t, map[string]any{
		"url":            srv.URL,
		"responsePath":   "order.status",
		"outputVariable": "status",
	}, vars)

	require.Equal(t, "default", tr.Handle)
	require.Nil(t, tr.Await)
	v, _ := vars.Get("status")
	require.Equal(t, "shipped", v)
}

func testApiErrorCaptured(t *testing.T) {
	vars := model.Variables{}
	tr := runApiCall(t, map[string]any{
		"url": "http://127.0.0.1:1/unreachable",
	}, vars)

	require.Equal(t, "default", tr.Handle)
	result, _ := vars.Get("apiResult")
	m, ok := result.(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, m["error"])
}

func testApiAwaitResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	vars := model.Variables{}
	tr := runApiCall(t, map[string]any{
		"url":            srv.URL,
		"method":         "POST",
		"outputVariable": "callbackResult",
		"awaitResponse":  true,
	}, vars)

	require.NotNil(t, tr.Await)
	require.Equal(t, model.AWAITING_API_RESPONSE, tr.Await.Type)
	require.Equal(t, "callbackResult", tr.Await.Variable)
	// the synchronous acknowledgement is still recorded
	v, _ := vars.Get("callbackResult")
	require.NotNil(t, v)
}
