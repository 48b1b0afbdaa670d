package proxy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shCommand(script string) []string {
	return []string{"sh", "-c", script}
}

func TestClientProxy_Call_ParsesWireResult(t *testing.T) {
	script := `echo "not json, a progress line"; echo '{"success":true,"status_code":200,"payment_response":{"success":true,"transaction":"0xabc","network":"eip155:84532"}}'`
	c := NewClient("go-client", t.TempDir(), shCommand(script))

	res, err := c.Call(context.Background(), ClientConfig{ServerURL: "http://localhost:4022", Endpoint: "/paid"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 200, res.StatusCode)
	require.NotNil(t, res.PaymentResponse)
	require.Equal(t, "0xabc", res.PaymentResponse.Transaction)
}

func TestClientProxy_Call_NoJSONLine(t *testing.T) {
	c := NewClient("broken-client", t.TempDir(), shCommand(`echo "just noise"`))

	res, err := c.Call(context.Background(), ClientConfig{ServerURL: "http://localhost:4022", Endpoint: "/paid"})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "no JSON result line")
}

func TestClientProxy_RevokePermit2_SetsActionEnvAndParsesResult(t *testing.T) {
	script := `test "$CLIENT_ACTION" = "revoke_permit2" && echo '{"success":true}' || echo '{"success":false,"error":"missing action env"}'`
	c := NewClient("go-client", t.TempDir(), shCommand(script))

	err := c.RevokePermit2(context.Background(), ClientConfig{ServerURL: "http://localhost:4022", Endpoint: "/paid"})
	require.NoError(t, err)
}

func TestClientProxy_RevokePermit2_ReturnsErrorOnFailure(t *testing.T) {
	c := NewClient("go-client", t.TempDir(), shCommand(`echo '{"success":false,"error":"allowance already zero"}'`))

	err := c.RevokePermit2(context.Background(), ClientConfig{ServerURL: "http://localhost:4022", Endpoint: "/paid"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "allowance already zero")
}

func TestClientProxy_RevokePermit2_NoJSONLine(t *testing.T) {
	c := NewClient("broken-client", t.TempDir(), shCommand(`echo "just noise"`))

	err := c.RevokePermit2(context.Background(), ClientConfig{ServerURL: "http://localhost:4022", Endpoint: "/paid"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no JSON result line")
}

func TestClientProxy_ForceStop_SafeBeforeCall(t *testing.T) {
	c := NewClient("go-client", t.TempDir(), shCommand("true"))
	require.NoError(t, c.ForceStop(context.Background()))
}

func TestClientProxy_ForceStop_TerminatesInFlightCall(t *testing.T) {
	c := NewClient("slow-client", t.TempDir(), shCommand("sleep 30"))

	done := make(chan ClientResult, 1)
	go func() {
		res, _ := c.Call(context.Background(), ClientConfig{ServerURL: "http://localhost:4022", Endpoint: "/paid"})
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, c.ForceStop(context.Background()))

	select {
	case res := <-done:
		require.False(t, res.Success)
	case <-time.After(6 * time.Second):
		t.Fatal("Call did not return after ForceStop")
	}
}
