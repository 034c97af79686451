package session

import (
	"strings"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// MeetingLinkProvider derives the meeting URL stamped on a session when it
// is confirmed. Injectable so a real conferencing integration can replace
// the built-in generator.
type MeetingLinkProvider interface {
	MeetingLink(sessionID uuid.UUID) string
}

// LinkGenerator derives deterministic placeholder links: three segments of
// the session id joined by hyphens under a fixed base URL. The same
// session always yields the same link.
type LinkGenerator struct {
	BaseURL string
}

func (g LinkGenerator) MeetingLink(sessionID uuid.UUID) string {
	hex := strings.ReplaceAll(sessionID.String(), "-", "")
	code := hex[0:3] + "-" + hex[3:7] + "-" + hex[7:10]
	return strings.TrimSuffix(g.BaseURL, "/") + "/" + code
}
