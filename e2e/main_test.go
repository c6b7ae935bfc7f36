package e2e

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"
)

const serverPackage = "expense-client/cmd/server"

var appURL string

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

func runTestMain(m *testing.M) int {
	workDir, err := os.MkdirTemp("", "expense-e2e-")
	if err != nil {
		fmt.Printf("create work dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(workDir)

	binary := filepath.Join(workDir, "server")
	if out, err := exec.Command("go", "build", "-o", binary, serverPackage).CombinedOutput(); err != nil {
		fmt.Printf("build %s: %v\n%s\n", serverPackage, err, out)
		return 1
	}

	port, err := freePort()
	if err != nil {
		fmt.Printf("pick port: %v\n", err)
		return 1
	}
	appURL = "http://127.0.0.1:" + strconv.Itoa(port)

	server := exec.Command(binary)
	server.Env = append(os.Environ(),
		"PORT="+strconv.Itoa(port),
		"DB_PATH="+filepath.Join(workDir, "expenses.db"),
		"LOG_LEVEL=warn",
	)
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	if err := server.Start(); err != nil {
		fmt.Printf("start server: %v\n", err)
		return 1
	}
	defer stopServer(server)

	if err := waitHealthy(appURL+"/healthz", 5*time.Second); err != nil {
		fmt.Printf("server not ready: %v\n", err)
		return 1
	}

	return m.Run()
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitHealthy(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var lastErr error
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// stopServer asks for a graceful shutdown and kills the process if it
// does not exit in time.
func stopServer(server *exec.Cmd) {
	done := make(chan struct{})
	go func() {
		_ = server.Wait()
		close(done)
	}()

	_ = server.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = server.Process.Kill()
		<-done
	}
}
