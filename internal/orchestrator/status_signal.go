package orchestrator

import "strings"

// normalizeAIStatus maps the status word a hosted model reports onto the
// three negotiation statuses. Anything unrecognised keeps negotiating.
func normalizeAIStatus(raw string) string {
	switch statusToken(raw) {
	case "agreed", "agree", "accepted", "accept", "deal", "done", "closed", "final", "yes":
		return AIStatusAgreed
	case "rejected", "reject", "declined", "decline", "no", "walked_away", "cancelled":
		return AIStatusRejected
	default:
		return AIStatusNegotiating
	}
}

// parseStatusDirective reads a trailing "STATUS: agreed" line some models add
// to plain-text replies. It returns the reply without the directive.
func parseStatusDirective(content string) (string, string, bool) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		for _, prefix := range []string{"STATUS:", "STATUS=", "DEAL:", "स्थिति:"} {
			rest, ok := trimPrefixFold(line, prefix)
			if !ok {
				continue
			}
			text := strings.TrimSpace(strings.Join(lines[:i], "\n"))
			return text, normalizeAIStatus(rest), true
		}
		break
	}
	return strings.TrimSpace(content), "", false
}

func statusToken(text string) string {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return ""
	}
	token := strings.Trim(parts[0], "\"'`.,;:!?)]}>")
	return strings.ToLower(strings.TrimSpace(token))
}

func trimPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
