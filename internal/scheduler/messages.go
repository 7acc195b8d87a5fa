package scheduler

import (
	"fmt"
	"strings"
)

func greeting(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return "there"
	}
	return name
}

func monthlyReminderText(firstName, periodLabel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meter reading reminder\n\n")
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting(firstName))
	fmt.Fprintf(&b, "Please submit your water meter reading for %s.\n", periodLabel)
	fmt.Fprintf(&b, "Submitting on time keeps your invoice accurate.\n\n")
	fmt.Fprintf(&b, "Reply with the current meter reading.")
	return b.String()
}

func precloseReminderText(firstName, periodLabel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Heads up\n\n")
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting(firstName))
	fmt.Fprintf(&b, "%s is almost over. Please have your meter reading ready ", periodLabel)
	fmt.Fprintf(&b, "for the start of next month.")
	return b.String()
}

func forcedReminderText(firstName, periodLabel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meter reading reminder\n\n")
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting(firstName))
	fmt.Fprintf(&b, "Please submit your water meter reading for %s as soon as possible.\n\n", periodLabel)
	fmt.Fprintf(&b, "Reply with the current meter reading.")
	return b.String()
}

func startupNoticeText() string {
	return "Service notice\n\nThe billing service has restarted and is ready again. Thanks for your patience."
}
