package newsreview

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Action is what the review engine decided to do with a draft.
type Action string

const (
	// ActionPublish hands the draft to the publisher without scanning.
	ActionPublish Action = "publish"
	// ActionScan runs extraction and the sensitive word scan.
	ActionScan Action = "scan"
	// ActionWait means a scheduled draft is not yet due.
	ActionWait Action = "wait"
	// ActionNone means the status is not handled by the automatic path.
	ActionNone Action = "none"
	// ActionReject and ActionQueue are scan outcomes.
	ActionReject Action = "reject"
	ActionQueue  Action = "queue"
)

// NextAction applies the automatic transition rules in precedence order.
// It is pure: the caller performs the action.
func NextAction(draft *Draft, now time.Time) Action {
	switch draft.Status {
	case StatusManuallyApproved:
		return ActionPublish
	case StatusScheduledPublish:
		if !draft.PublishTime.After(now) {
			return ActionPublish
		}
		return ActionWait
	case StatusPendingAutoScan:
		return ActionScan
	default:
		return ActionNone
	}
}

// ScanOutcome maps matcher output to the next status and reason.
func ScanOutcome(matches map[string]int) (Status, string, Action) {
	if len(matches) == 0 {
		return StatusPendingManualReview, ReasonAwaitingManualReview, ActionQueue
	}
	return StatusRejected, SensitiveReason(matches), ActionReject
}

// SensitiveReason renders the rejection reason for a set of matched terms.
// Terms are listed in sorted order so the reason is deterministic.
func SensitiveReason(matches map[string]int) string {
	terms := make([]string, 0, len(matches))
	for term := range matches {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return sensitiveReasonPrefix + strings.Join(terms, ", ")
}

// canPublish checks if a draft may enter the publisher.
func canPublish(draft *Draft, now time.Time) (bool, error) {
	switch draft.Status {
	case StatusManuallyApproved:
		return true, nil
	case StatusScheduledPublish:
		if draft.PublishTime.After(now) {
			return false, fmt.Errorf("%w: draft is scheduled for %s (status: %s)", ErrInvalidStatus, draft.PublishTime.Format(time.RFC3339), draft.Status)
		}
		return true, nil
	case StatusPublished:
		return false, fmt.Errorf("%w: draft is already published (status: %s)", ErrInvalidStatus, draft.Status)
	case StatusRejected, StatusPendingManualReview, StatusPendingAutoScan, StatusDraft:
		return false, fmt.Errorf("%w: draft has not been approved (status: %s)", ErrInvalidStatus, draft.Status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidStatus, draft.Status)
	}
}

// canDecideManually checks if a moderator verdict changes the draft.
// Terminal drafts are reported as not applicable without an error.
func canDecideManually(status Status) (bool, error) {
	switch status {
	case StatusPublished, StatusRejected:
		return false, nil
	case StatusDraft, StatusPendingAutoScan, StatusPendingManualReview, StatusManuallyApproved, StatusScheduledPublish:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidStatus, status)
	}
}

func validateDecision(req ManualDecisionRequest) error {
	switch req.Decision {
	case DecisionAccept, DecisionReject:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDecision, req.Decision)
	}
}
