package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"muster/internal/config"
)

// serverProxy is the subprocess-backed implementation of the Server contract.
type serverProxy struct {
	*subprocess
	dir           string
	command       []string
	port          int
	protectedPath string
	httpClient    *http.Client
}

// NewServer builds a Server proxy for a discovered server component. dir is
// the component's directory; command launches its subprocess; protectedPath
// is the endpoint path the orchestrator will drive clients against.
func NewServer(name, dir string, command []string, protectedPath string) Server {
	return &serverProxy{
		subprocess:    newSubprocess("Proxy.Server", name),
		dir:           dir,
		command:       command,
		protectedPath: protectedPath,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *serverProxy) Start(ctx context.Context, cfg ServerConfig) error {
	p.port = cfg.Port

	env := map[string]string{
		"PORT": fmt.Sprintf("%d", cfg.Port),
	}
	if addr, ok := cfg.Payee[config.ProtocolEVM]; ok {
		env["SERVER_EVM_ADDRESS"] = addr
	}
	if addr, ok := cfg.Payee[config.ProtocolSVM]; ok {
		env["SERVER_SVM_ADDRESS"] = addr
	}
	if cfg.FacilitatorURL != "" {
		env["FACILITATOR_URL"] = cfg.FacilitatorURL
	}
	if len(cfg.Network) > 0 {
		env["NETWORK"] = cfg.Network[0]
	}

	return p.subprocess.start(p.dir, p.command, env)
}

func (p *serverProxy) Health(ctx context.Context) (HealthResult, error) {
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
		// Health endpoints that return no body / non-JSON 200 still count as healthy.
		return HealthResult{Success: true}, nil
	}
	return HealthResult{Success: body.Success || resp.StatusCode == http.StatusOK}, nil
}

func (p *serverProxy) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

func (p *serverProxy) ProtectedPath() string {
	return p.protectedPath
}

func (p *serverProxy) Stop(ctx context.Context) error {
	return p.subprocess.stop()
}
