package node

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/analytics"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

var apiClient = &http.Client{Timeout: 30 * time.Second}

// apiCallNode performs an outbound HTTP request built from substituted
// templates. Transport and decode errors are captured into the output
// variable so the flow keeps control. It advances on "default" unless
// awaitResponse is set, in which case the session suspends until the result
// arrives out of band on the event endpoint.
type apiCallNode struct {
	def model.Node
}

func newApiCallNode(def model.Node) Node {
	return &apiCallNode{def: def}
}

func (n *apiCallNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	outputVar := cfgString(n.def, "outputVariable")
	if outputVar == "" {
		outputVar = "apiResult"
	}

	result, err := n.call(ctx, ec.Vars())
	if err != nil {
		logger.Error("api call failed", zap.String("nodeId", n.def.Id), zap.Error(err))
		analytics.RecordNodeFailure(ec.Workspace.Id, ec.Session.SessionId, n.def.Id, err.Error())
		ec.Vars().Set(outputVar, map[string]any{"error": err.Error()})
		return Transition{Handle: "default"}, nil
	}
	analytics.RecordApiExchange(ec.Workspace.Id, ec.Session.SessionId, n.def.Id, result.request, result.status, result.body)

	primary := any(result.body)
	if path := cfgString(n.def, "responsePath"); path != "" {
		if extracted, err := jsonpath.JsonPathLookup(result.body, normalizePath(path)); err == nil {
			primary = extracted
		}
	}
	ec.Vars().Set(outputVar, primary)

	for _, m := range cfgSlice(n.def, "extractions") {
		mapping, ok := m.(map[string]any)
		if !ok {
			continue
		}
		path, _ := mapping["path"].(string)
		variable, _ := mapping["variable"].(string)
		if path == "" || variable == "" {
			continue
		}
		if extracted, err := jsonpath.JsonPathLookup(result.body, normalizePath(path)); err == nil {
			ec.Vars().Set(variable, extracted)
		}
	}
	if cfgBool(n.def, "awaitResponse") {
		return Transition{Await: &Await{Type: model.AWAITING_API_RESPONSE, Variable: outputVar}}, nil
	}
	return Transition{Handle: "default"}, nil
}

type apiResult struct {
	request map[string]any
	status  int
	body    any
}

func (n *apiCallNode) call(ctx context.Context, vars model.Variables) (*apiResult, error) {
	method := strings.ToUpper(cfgString(n.def, "method"))
	if method == "" {
		method = http.MethodGet
	}
	endpoint := util.Substitute(cfgString(n.def, "url"), vars)

	var body io.Reader
	contentType := ""
	switch cfgString(n.def, "bodyType") {
	case "json":
		raw := util.Substitute(cfgString(n.def, "body"), vars)
		body = strings.NewReader(raw)
		contentType = "application/json"
	case "raw":
		body = strings.NewReader(util.Substitute(cfgString(n.def, "body"), vars))
		contentType = "text/plain"
	case "form":
		form := url.Values{}
		for key, value := range cfgMap(n.def, "formFields") {
			form.Set(key, util.Substitute(util.Stringify(value), vars))
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range cfgMap(n.def, "headers") {
		req.Header.Set(key, util.Substitute(util.Stringify(value), vars))
	}
	if token := util.Substitute(cfgString(n.def, "bearerToken"), vars); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	query := req.URL.Query()
	for key, value := range cfgMap(n.def, "queryParams") {
		query.Set(key, util.Substitute(util.Stringify(value), vars))
	}
	req.URL.RawQuery = query.Encode()

	logger.Debug("api call request", zap.String("nodeId", n.def.Id),
		zap.String("method", method), zap.String("url", req.URL.String()))

	resp, err := apiClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	logger.Debug("api call response", zap.String("nodeId", n.def.Id),
		zap.Int("status", resp.StatusCode), zap.Int("bytes", len(raw)))

	var decoded any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &decoded); err != nil {
		decoded = string(raw)
	}
	request := map[string]any{"method": method, "url": req.URL.String()}
	return &apiResult{request: request, status: resp.StatusCode, body: decoded}, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "$") {
		return path
	}
	return "$." + path
}
