package cli

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfsql/internal/httpapi"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// startServe runs `serve` in the background and waits until it answers.
func startServe(t *testing.T, token string) (addr string, done <-chan error) {
	t.Helper()
	port := freePort(t)
	addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	args := []string{"serve", fakeBinary(t), "--host", "127.0.0.1", "--port", strconv.Itoa(port), "--token", token}
	errCh := make(chan error, 1)
	a := testApp(t)
	go func() {
		_, err := execute(t, a, "", args...)
		errCh <- err
	}()

	client := httpapi.NewClient(addr, token, time.Second)
	require.Eventually(t, func() bool {
		select {
		case err := <-errCh:
			errCh <- err
			return true
		default:
		}
		_, err := client.Status(context.Background())
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	return addr, errCh
}

func TestServeAndRemote(t *testing.T) {
	addr, done := startServe(t, "secret")

	// Remote without a token is rejected.
	_, err := execute(t, testApp(t), "", "remote", addr, "SELECT 1")
	require.Error(t, err)

	out, err := execute(t, testApp(t), "", "remote", addr, "SELECT name FROM functions ORDER BY name", "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "helper\nleaf\nmain\n")
	assert.Contains(t, out.stdout, "(3 rows)")

	out, err = execute(t, testApp(t), "", "remote", addr, "SELECT name FROM structs", "--token", "secret", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name\nPoint\n", out.stdout)

	out, err = execute(t, testApp(t), "", "remote", addr, "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "running")
	assert.Contains(t, out.stdout, "struct_members")

	_, err = execute(t, testApp(t), "", "remote", addr, "SELEC", "--token", "secret")
	assert.Error(t, err)

	out, err = execute(t, testApp(t), "", "remote", addr, "--shutdown", "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "Shutdown requested")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after /shutdown")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	a := testApp(t)
	bin := fakeBinary(t)
	go func() {
		_, err := executeContext(ctx, t, a, "", "serve", bin, "--port", strconv.Itoa(port), "--watch")
		errCh <- err
	}()

	client := httpapi.NewClient(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), "", time.Second)
	require.Eventually(t, func() bool {
		_, err := client.Status(context.Background())
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestRemoteUnreachable(t *testing.T) {
	_, err := execute(t, testApp(t), "", "remote", net.JoinHostPort("127.0.0.1", strconv.Itoa(freePort(t))), "--timeout", "1s")
	assert.Error(t, err)
}
