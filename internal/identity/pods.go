package identity

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/sgahlot/signalctx/internal/types"
)

const (
	// ReasonFailed marks pods in the Failed phase.
	ReasonFailed = "Failed"
	// ReasonCrashLoopBackOff marks pods with a container waiting to restart.
	ReasonCrashLoopBackOff = "CrashLoopBackOff"

	defaultPageSize = 500
)

// PodIssue is an unhealthy pod and why it was selected.
type PodIssue struct {
	Identity types.ResourceIdentity `json:"identity"`
	Reason   string                 `json:"reason"`
}

// PodIssueFinderOptions configures a PodIssueFinder.
type PodIssueFinderOptions struct {
	// Selector restricts which pods are listed. Nil matches all pods.
	Selector *metav1.LabelSelector

	// PageSize is the list page size.
	// Default: 500
	PageSize int64

	// Logger is the logger. Default: zap.NewNop()
	Logger *zap.Logger
}

// PodIssueFinder lists pods that are Failed or crash looping.
type PodIssueFinder struct {
	client   kubernetes.Interface
	selector *metav1.LabelSelector
	pageSize int64
	logger   *zap.Logger
}

// NewPodIssueFinder creates a PodIssueFinder backed by client.
func NewPodIssueFinder(client kubernetes.Interface, opts PodIssueFinderOptions) *PodIssueFinder {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PodIssueFinder{
		client:   client,
		selector: opts.Selector,
		pageSize: opts.PageSize,
		logger:   opts.Logger.Named("pod-issues"),
	}
}

// Find returns the unhealthy pods in namespace, or in every namespace when
// namespace is empty. Results are sorted by namespace and name.
func (f *PodIssueFinder) Find(ctx context.Context, namespace string) ([]PodIssue, error) {
	opts := metav1.ListOptions{Limit: f.pageSize}
	if f.selector != nil {
		sel, err := metav1.LabelSelectorAsSelector(f.selector)
		if err != nil {
			return nil, fmt.Errorf("invalid pod selector: %w", err)
		}
		opts.LabelSelector = sel.String()
	}

	var issues []PodIssue
	for {
		list, err := f.client.CoreV1().Pods(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list pods in %q: %w", namespace, err)
		}
		for i := range list.Items {
			pod := &list.Items[i]
			if reason, ok := podIssue(pod); ok {
				issues = append(issues, PodIssue{
					Identity: types.ResourceIdentity{Namespace: pod.Namespace, Name: pod.Name},
					Reason:   reason,
				})
			}
		}
		if list.Continue == "" {
			break
		}
		opts.Continue = list.Continue
	}

	slices.SortFunc(issues, func(a, b PodIssue) int {
		return cmp.Or(
			cmp.Compare(a.Identity.Namespace, b.Identity.Namespace),
			cmp.Compare(a.Identity.Name, b.Identity.Name),
		)
	})
	f.logger.Debug("Found pod issues",
		zap.String("namespace", namespace),
		zap.Int("count", len(issues)),
	)
	return issues, nil
}

// IssueIdentities reduces issues to their identities, in order.
func IssueIdentities(issues []PodIssue) []types.ResourceIdentity {
	ids := make([]types.ResourceIdentity, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.Identity)
	}
	return ids
}

func podIssue(pod *corev1.Pod) (string, bool) {
	if pod.Status.Phase == corev1.PodFailed {
		return ReasonFailed, true
	}
	statuses := append(slices.Clone(pod.Status.InitContainerStatuses), pod.Status.ContainerStatuses...)
	for _, cs := range statuses {
		if w := cs.State.Waiting; w != nil && w.Reason == ReasonCrashLoopBackOff {
			return ReasonCrashLoopBackOff, true
		}
	}
	return "", false
}
