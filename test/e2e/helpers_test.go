//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/client-go/kubernetes"

	"github.com/sgahlot/signalctx/internal/toolexec"
)

const (
	testNamespacePrefix = "signalctx-e2e-"

	// e2eLabel marks resources created by E2E tests for cleanup.
	e2eLabel = "signalctx-e2e"

	serverDeploymentName = "signalctx-server"
	serverServiceName    = "signalctx"
	serverPort           = 8085

	defaultPollInterval = 1 * time.Second
	portForwardTimeout  = 30 * time.Second
)

// serverNamespace is where the server runs; SIGNALCTX_E2E_NAMESPACE overrides it.
func serverNamespace() string {
	if ns := os.Getenv("SIGNALCTX_E2E_NAMESPACE"); ns != "" {
		return ns
	}
	return "signalctx"
}

// markFlaky skips the test when E2E_SKIP_FLAKY=1 is set.
func markFlaky(t *testing.T, reason string) {
	t.Helper()
	if os.Getenv("E2E_SKIP_FLAKY") == "1" {
		t.Skipf("SKIPPED (flaky): %s", reason)
	}
	t.Logf("FLAKY TEST: %s (set E2E_SKIP_FLAKY=1 to skip)", reason)
}

// waitForCondition polls until conditionFn returns true or the timeout expires.
func waitForCondition(t *testing.T, timeout, interval time.Duration, conditionFn func() (bool, error)) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ok, err := conditionFn()
		if err != nil {
			t.Logf("waitForCondition: %v", err)
		}
		if ok {
			return
		}
		time.Sleep(interval)
	}
	t.Fatalf("waitForCondition: timed out after %v", timeout)
}

// createTestNamespace creates a labeled namespace with a random suffix.
// Returns the namespace name and a cleanup function that deletes it.
func createTestNamespace(t *testing.T, clientset kubernetes.Interface) (string, func()) {
	t.Helper()
	name := testNamespacePrefix + rand.String(6)

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{e2eLabel: "true"},
		},
	}
	_, err := clientset.CoreV1().Namespaces().Create(context.Background(), ns, metav1.CreateOptions{})
	require.NoError(t, err, "failed to create test namespace %s", name)
	t.Logf("Created test namespace: %s", name)

	cleanup := func() {
		t.Logf("Deleting test namespace: %s", name)
		err := clientset.CoreV1().Namespaces().Delete(context.Background(), name, metav1.DeleteOptions{})
		if err != nil {
			t.Logf("Warning: failed to delete namespace %s: %v", name, err)
		}
	}
	return name, cleanup
}

// createCrashingPod starts a pod that logs an error and exits, so it ends up
// in CrashLoopBackOff.
func createCrashingPod(t *testing.T, clientset kubernetes.Interface, namespace, name, message string) {
	t.Helper()
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{e2eLabel: "true", "app": name},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyAlways,
			Containers: []corev1.Container{{
				Name:    "app",
				Image:   "busybox:1.36",
				Command: []string{"sh", "-c", fmt.Sprintf("echo 'level=error msg=%q'; exit 1", message)},
			}},
		},
	}
	_, err := clientset.CoreV1().Pods(namespace).Create(context.Background(), pod, metav1.CreateOptions{})
	require.NoError(t, err, "failed to create pod %s/%s", namespace, name)
}

// waitForCrashLoop waits until a container of the pod is waiting in CrashLoopBackOff.
func waitForCrashLoop(t *testing.T, clientset kubernetes.Interface, namespace, name string, timeout time.Duration) {
	t.Helper()
	waitForCondition(t, timeout, defaultPollInterval, func() (bool, error) {
		pod, err := clientset.CoreV1().Pods(namespace).Get(context.Background(), name, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.State.Waiting != nil && cs.State.Waiting.Reason == "CrashLoopBackOff" {
				return true, nil
			}
		}
		return false, nil
	})
}

// syncBuffer is a goroutine-safe bytes.Buffer for subprocess output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.String()
}

// startPortForward forwards a local port to the server Service and returns a
// remote tool executor bound to it. The port-forward stops at test cleanup.
func startPortForward(t *testing.T) (string, *toolexec.Remote) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx,
		"kubectl", "port-forward",
		fmt.Sprintf("svc/%s", serverServiceName),
		fmt.Sprintf("0:%d", serverPort),
		"-n", serverNamespace(),
	)
	out := &syncBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out
	require.NoError(t, cmd.Start(), "failed to start kubectl port-forward")
	t.Cleanup(func() {
		cancel()
		_ = cmd.Wait()
	})

	var localPort string
	waitForCondition(t, portForwardTimeout, 200*time.Millisecond, func() (bool, error) {
		localPort = parseForwardedPort(out.String())
		return localPort != "", nil
	})

	baseURL := fmt.Sprintf("http://127.0.0.1:%s", localPort)
	remote, err := toolexec.NewRemote(toolexec.RemoteOptions{BaseURL: baseURL, Timeout: 30 * time.Second})
	require.NoError(t, err)

	// Wait for the tool listing to answer through the tunnel.
	waitForCondition(t, portForwardTimeout, 500*time.Millisecond, func() (bool, error) {
		_, err := remote.ListTools(context.Background())
		return err == nil, nil
	})
	t.Logf("Port-forward ready: %s -> svc/%s:%d", baseURL, serverServiceName, serverPort)
	return baseURL, remote
}

// parseForwardedPort extracts the local port from kubectl port-forward output.
func parseForwardedPort(output string) string {
	for _, prefix := range []string{"Forwarding from 127.0.0.1:", "Forwarding from [::1]:"} {
		if idx := strings.Index(output, prefix); idx >= 0 {
			rest := output[idx+len(prefix):]
			if end := strings.Index(rest, " "); end > 0 {
				return rest[:end]
			}
		}
	}
	return ""
}
