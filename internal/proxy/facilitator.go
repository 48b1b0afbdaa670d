package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// facilitatorProxy is the subprocess-backed implementation of the
// Facilitator contract.
type facilitatorProxy struct {
	*subprocess
	dir        string
	command    []string
	port       int
	httpClient *http.Client
}

// NewFacilitator builds a Facilitator proxy for a discovered facilitator
// component.
func NewFacilitator(name, dir string, command []string) Facilitator {
	return &facilitatorProxy{
		subprocess: newSubprocess("Proxy.Facilitator", name),
		dir:        dir,
		command:    command,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *facilitatorProxy) Start(ctx context.Context, cfg FacilitatorConfig) error {
	p.port = cfg.Port

	env := map[string]string{
		"PORT": fmt.Sprintf("%d", cfg.Port),
	}
	if cfg.EVMPrivateKey != "" {
		env["EVM_PRIVATE_KEY"] = cfg.EVMPrivateKey
	}
	if cfg.SVMPrivateKey != "" {
		env["SVM_PRIVATE_KEY"] = cfg.SVMPrivateKey
	}
	if len(cfg.Network) > 0 {
		env["EVM_NETWORK"] = cfg.Network[0]
	}
	for k, v := range cfg.Env {
		env[k] = v
	}

	return p.subprocess.start(p.dir, p.command, env)
}

func (p *facilitatorProxy) Health(ctx context.Context) (HealthResult, error) {
	url := fmt.Sprintf("%s/health", p.URL())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthResult{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return HealthResult{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthResult{Success: false, Error: fmt.Sprintf("status %d", resp.StatusCode)}, nil
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return HealthResult{Success: true}, nil
	}
	return HealthResult{Success: body.Success || resp.StatusCode == http.StatusOK}, nil
}

func (p *facilitatorProxy) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

func (p *facilitatorProxy) Stop(ctx context.Context) error {
	return p.subprocess.stop()
}
