//go:build integration

// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mysqlImage          = "mysql:8.0.36"
	mysqlDatabase       = "chatrelay"
	mysqlPassword       = "secret"
	mysqlStartupTimeout = 2 * time.Minute
)

// MySQL is a running MySQL container with an open pool.
type MySQL struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// StartMySQL starts MySQL 8 and skips the test when Docker is unavailable.
func StartMySQL(t *testing.T, ctx context.Context) MySQL {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	port := nat.Port("3306/tcp")
	dsn := func(host string, port nat.Port) string {
		return fmt.Sprintf("root:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC", mysqlPassword, host, port.Port(), mysqlDatabase)
	}
	req := testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		WaitingFor: wait.ForSQL(port, "mysql", dsn).WithStartupTimeout(mysqlStartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("resolve port: %v", err)
	}

	hostDSN := dsn(host, mapped)
	db, err := sql.Open("mysql", hostDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return MySQL{Container: container, DB: db, DSN: hostDSN}
}

// BuildBinary compiles pkg into a temp dir and returns the binary path.
func BuildBinary(t *testing.T, pkg string) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "cli")
	cmd := exec.Command("go", "build", "-o", bin, pkg)
	cmd.Env = os.Environ()
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s: %v\n%s", pkg, err, out)
	}

	return bin
}

// RunBinary runs bin with args and returns its exit code and combined output.
func RunBinary(t *testing.T, ctx context.Context, bin string, args ...string) (int, string) {
	t.Helper()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, out.String()
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), out.String()
	default:
		t.Fatalf("run %s: %v", bin, err)
		return -1, ""
	}
}
