// Package capability models externally executed, declaratively described
// actions that agent and capability nodes may invoke.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Descriptor declares one capability: what it is called, how the model
// should use it, and how to execute it.
type Descriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]any    `json:"parameters,omitempty"` // JSON Schema
	Kind        string            `json:"kind"`                 // "http" or "builtin"
	URL         string            `json:"url,omitempty"`
	Method      string            `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Executor runs a capability. Failures come back as an error value the
// caller records, never as a panic.
type Executor interface {
	Execute(ctx context.Context, desc Descriptor, input map[string]any) (any, error)
}

// Registry is the capability lookup surface scoped per workspace.
type Registry interface {
	List(ctx context.Context, workspaceId string) ([]Descriptor, error)
	Get(ctx context.Context, workspaceId string, name string) (*Descriptor, error)
}

// StaticRegistry is a map-backed Registry, populated at boot or by tests.
type StaticRegistry struct {
	mu   sync.RWMutex
	byWs map[string][]Descriptor
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{byWs: make(map[string][]Descriptor)}
}

func (r *StaticRegistry) Register(workspaceId string, desc Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byWs[workspaceId] = append(r.byWs[workspaceId], desc)
}

func (r *StaticRegistry) List(ctx context.Context, workspaceId string) ([]Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Descriptor(nil), r.byWs[workspaceId]...), nil
}

func (r *StaticRegistry) Get(ctx context.Context, workspaceId string, name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.byWs[workspaceId] {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("capability %s not found", name)
}

// HTTPExecutor executes url-backed capabilities by posting the input as
// JSON and decoding the JSON reply.
type HTTPExecutor struct {
	Client *http.Client
}

func NewHTTPExecutor() *HTTPExecutor {
	return &HTTPExecutor{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (e *HTTPExecutor) Execute(ctx context.Context, desc Descriptor, input map[string]any) (any, error) {
	if desc.Kind != "http" || desc.URL == "" {
		return nil, fmt.Errorf("capability %s is not executable over http", desc.Name)
	}
	method := desc.Method
	if method == "" {
		method = http.MethodPost
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, desc.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range desc.Headers {
		req.Header.Set(k, v)
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("capability %s failed with status %d", desc.Name, resp.StatusCode)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw), nil
	}
	return out, nil
}
