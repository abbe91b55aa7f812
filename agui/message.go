package agui

import (
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/concierge"
)

// Role constants matching AG-UI protocol.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// LastUserMessage returns the content of the latest non-blank user message.
func LastUserMessage(msgs []events.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != RoleUser || m.Content == nil {
			continue
		}
		if text := strings.TrimSpace(*m.Content); text != "" {
			return text, true
		}
	}
	return "", false
}

// FromRecords converts stored consultation records to AG-UI messages, a
// user and an assistant message per record.
func FromRecords(records []concierge.ConsultationRecord) []events.Message {
	result := make([]events.Message, 0, 2*len(records))
	for _, r := range records {
		user, reply := r.Message, r.Response
		result = append(result,
			events.Message{ID: r.ID + "-user", Role: RoleUser, Content: &user},
			events.Message{ID: r.ID + "-assistant", Role: RoleAssistant, Content: &reply},
		)
	}
	return result
}
