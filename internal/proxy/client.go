package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"muster/internal/config"
)

// clientWireResult is the JSON envelope a client subprocess prints as its
// last stdout line, per spec.md §9.
type clientWireResult struct {
	Success         bool             `json:"success"`
	Data            map[string]any   `json:"data,omitempty"`
	StatusCode      int              `json:"status_code,omitempty"`
	PaymentResponse *PaymentResponse `json:"payment_response,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// clientProxy is the subprocess-backed implementation of the Client
// contract. Each Call spawns a fresh one-shot subprocess; ForceStop targets
// whichever subprocess is currently in flight, if any.
type clientProxy struct {
	name    string
	dir     string
	command []string

	mu      sync.Mutex
	current *subprocess
}

// NewClient builds a Client proxy for a discovered client component.
func NewClient(name, dir string, command []string) Client {
	return &clientProxy{name: name, dir: dir, command: command}
}

func (p *clientProxy) Call(ctx context.Context, cfg ClientConfig) (ClientResult, error) {
	sp := newSubprocess("Proxy.Client", p.name)

	p.mu.Lock()
	p.current = sp
	p.mu.Unlock()

	env := map[string]string{
		"CLIENT_SERVER_URL": cfg.ServerURL,
		"CLIENT_ENDPOINT":   cfg.Endpoint,
	}
	if key, ok := cfg.PrivateKeys[config.ProtocolEVM]; ok {
		env["CLIENT_EVM_PRIVATE_KEY"] = key
	}
	if key, ok := cfg.PrivateKeys[config.ProtocolSVM]; ok {
		env["CLIENT_SVM_PRIVATE_KEY"] = key
	}

	if err := sp.start(p.dir, p.command, env); err != nil {
		return ClientResult{Success: false, Error: err.Error()}, nil
	}

	waitErr := sp.wait()

	line, ok := sp.lastJSONLine()
	if !ok {
		errMsg := "client produced no JSON result line"
		if waitErr != nil {
			errMsg = fmt.Sprintf("%s: %v", errMsg, waitErr)
		}
		return ClientResult{Success: false, Error: errMsg}, nil
	}

	var wire clientWireResult
	if err := json.Unmarshal([]byte(line), &wire); err != nil {
		return ClientResult{Success: false, Error: fmt.Sprintf("parsing client result: %v", err)}, nil
	}

	return ClientResult{
		Success:         wire.Success,
		Data:            wire.Data,
		StatusCode:      wire.StatusCode,
		PaymentResponse: wire.PaymentResponse,
		Error:           wire.Error,
	}, nil
}

// RevokePermit2 spawns the client subprocess with CLIENT_ACTION=revoke_permit2
// set, reusing the same last-JSON-line wire contract as Call.
func (p *clientProxy) RevokePermit2(ctx context.Context, cfg ClientConfig) error {
	sp := newSubprocess("Proxy.Client", p.name)

	p.mu.Lock()
	p.current = sp
	p.mu.Unlock()

	env := map[string]string{
		"CLIENT_SERVER_URL": cfg.ServerURL,
		"CLIENT_ENDPOINT":   cfg.Endpoint,
		"CLIENT_ACTION":     "revoke_permit2",
	}
	if key, ok := cfg.PrivateKeys[config.ProtocolEVM]; ok {
		env["CLIENT_EVM_PRIVATE_KEY"] = key
	}

	if err := sp.start(p.dir, p.command, env); err != nil {
		return err
	}

	waitErr := sp.wait()

	line, ok := sp.lastJSONLine()
	if !ok {
		if waitErr != nil {
			return fmt.Errorf("permit2 revoke: %w", waitErr)
		}
		return fmt.Errorf("permit2 revoke: no JSON result line")
	}

	var wire clientWireResult
	if err := json.Unmarshal([]byte(line), &wire); err != nil {
		return fmt.Errorf("parsing permit2 revoke result: %w", err)
	}
	if !wire.Success {
		return fmt.Errorf("permit2 revoke failed: %s", wire.Error)
	}
	return nil
}

func (p *clientProxy) ForceStop(ctx context.Context) error {
	p.mu.Lock()
	sp := p.current
	p.mu.Unlock()
	if sp == nil {
		return nil
	}
	return sp.stop()
}
