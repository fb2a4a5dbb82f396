//go:build integration

package testutils

import (
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SquidEnv contains connection information for a squid proxy container.
type SquidEnv struct {
	Container testcontainers.Container
	ProxyURL  string
}

// Close terminates the squid container.
func (e *SquidEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// StartSquidContainer starts a squid forward proxy that can reach the given
// host ports under HostAlias.
func StartSquidContainer(t *testing.T, ctx context.Context, hostPorts ...int) *SquidEnv {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:           "ubuntu/squid:latest",
		ExposedPorts:    []string{"3128/tcp"},
		HostAccessPorts: hostPorts,
		WaitingFor:      wait.ForListeningPort("3128/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start squid container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3128")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	return &SquidEnv{
		Container: container,
		ProxyURL:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}
}

// HostAlias is the name under which containers reach ports on the host.
const HostAlias = testcontainers.HostInternal

// ServerPort returns the local port of an httptest server.
func ServerPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return port
}
