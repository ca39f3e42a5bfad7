package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/logging"
	"github.com/solitary-pixels/hotspotx/pkg/status"
)

// Message is a rendered notification.
type Message struct {
	Reason status.Reason
	Title  string
	Body   string
}

// Notifier delivers messages. Implementations own credentials and retries.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Compose renders the message for a decision that asked for a notification.
func Compose(dec status.Decision, statuses []status.DeviceStatus, warningThreshold int64) Message {
	title := "Timely Update"
	if dec.Reason == status.ReasonChanged {
		title = "Hotspot Status has Changed"
	}

	var b strings.Builder
	failing := status.Failing(statuses)
	fmt.Fprintf(&b, "%d/%d hotspots healthy (threshold %d blocks)",
		len(statuses)-len(failing), len(statuses), warningThreshold)
	if dec.Reason == status.ReasonChanged && dec.PreviousFingerprint != "" {
		fmt.Fprintf(&b, "\nstatus %s -> %s", dec.PreviousFingerprint, dec.StatusFingerprint)
	}
	for _, st := range failing {
		if st.BlocksInactive.IsKnown() {
			fmt.Fprintf(&b, "\n%s: %s blocks inactive", st.Name, st.BlocksInactive)
		} else {
			fmt.Fprintf(&b, "\n%s: activity unknown", st.Name)
		}
	}

	return Message{Reason: dec.Reason, Title: title, Body: b.String()}
}

// LogNotifier only logs messages. Used when no delivery channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logging.OrNop(logger)}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification (not delivered, no channel configured)",
		zap.String("reason", string(msg.Reason)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}
