package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/sgahlot/signalctx/internal/types"
)

func pod(ns, name string, phase corev1.PodPhase, labels map[string]string, waiting ...string) *corev1.Pod {
	p := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns, Labels: labels},
		Status:     corev1.PodStatus{Phase: phase},
	}
	for _, reason := range waiting {
		p.Status.ContainerStatuses = append(p.Status.ContainerStatuses, corev1.ContainerStatus{
			Name:  "main",
			State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: reason}},
		})
	}
	return p
}

func TestPodIssueFinder_Find(t *testing.T) {
	crashingInit := pod("llm", "init-crash", corev1.PodPending, nil)
	crashingInit.Status.InitContainerStatuses = []corev1.ContainerStatus{{
		Name:  "setup",
		State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"}},
	}}

	client := fake.NewSimpleClientset(
		pod("llm", "vllm-1", corev1.PodRunning, nil, "CrashLoopBackOff"),
		pod("llm", "vllm-0", corev1.PodFailed, nil),
		pod("llm", "healthy", corev1.PodRunning, nil),
		pod("llm", "pulling", corev1.PodPending, nil, "ImagePullBackOff"),
		crashingInit,
		pod("dev", "job-1", corev1.PodFailed, nil),
	)
	f := NewPodIssueFinder(client, PodIssueFinderOptions{})

	issues, err := f.Find(context.Background(), "llm")
	require.NoError(t, err)
	assert.Equal(t, []PodIssue{
		{Identity: types.ResourceIdentity{Namespace: "llm", Name: "init-crash"}, Reason: ReasonCrashLoopBackOff},
		{Identity: types.ResourceIdentity{Namespace: "llm", Name: "vllm-0"}, Reason: ReasonFailed},
		{Identity: types.ResourceIdentity{Namespace: "llm", Name: "vllm-1"}, Reason: ReasonCrashLoopBackOff},
	}, issues)

	all, err := f.Find(context.Background(), "")
	require.NoError(t, err)
	ids := IssueIdentities(all)
	require.Len(t, ids, 4)
	assert.Equal(t, types.ResourceIdentity{Namespace: "dev", Name: "job-1"}, ids[0])
}

func TestPodIssueFinder_Selector(t *testing.T) {
	client := fake.NewSimpleClientset(
		pod("llm", "vllm-0", corev1.PodFailed, map[string]string{"app": "vllm"}),
		pod("llm", "sidecar", corev1.PodFailed, map[string]string{"app": "proxy"}),
	)
	f := NewPodIssueFinder(client, PodIssueFinderOptions{
		Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "vllm"}},
	})

	issues, err := f.Find(context.Background(), "llm")
	require.NoError(t, err)
	assert.Equal(t, []types.ResourceIdentity{{Namespace: "llm", Name: "vllm-0"}}, IssueIdentities(issues))
}

func TestPodIssueFinder_InvalidSelector(t *testing.T) {
	f := NewPodIssueFinder(fake.NewSimpleClientset(), PodIssueFinderOptions{
		Selector: &metav1.LabelSelector{MatchExpressions: []metav1.LabelSelectorRequirement{
			{Key: "app", Operator: "Sometimes"},
		}},
	})

	_, err := f.Find(context.Background(), "llm")
	assert.ErrorContains(t, err, "invalid pod selector")
}

func TestPodIssueFinder_ListError(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("pods is forbidden")
	})
	f := NewPodIssueFinder(client, PodIssueFinderOptions{})

	_, err := f.Find(context.Background(), "llm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestPodIssueFinder_Empty(t *testing.T) {
	f := NewPodIssueFinder(fake.NewSimpleClientset(), PodIssueFinderOptions{})
	issues, err := f.Find(context.Background(), "llm")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Empty(t, IssueIdentities(issues))
}
