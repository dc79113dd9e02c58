package auth

import (
	"strings"
	"time"
)

// maxUserAgentLen caps the stored user agent; longer values are truncated.
const maxUserAgentLen = 512

// Session is the server-side record behind a session cookie.
// One row exists per (user, grant, IP, user agent); logout moves EndTime into the past.
type Session struct {
	ID          string    `json:"id"           db:"id"`
	UserID      string    `json:"user_id"      db:"user_id"`
	GrantID     string    `json:"grant_id"     db:"auth_grant_id"`
	Token       string    `json:"token"        db:"token"`
	// GrantToken is the delegated provider's access token. It is never JSON encoded, so cached
	// sessions and API output carry it empty.
	GrantToken  string    `json:"-"            db:"grant_token"`
	UserIP      string    `json:"user_ip"      db:"user_ip"`
	UserAgent   string    `json:"user_agent"   db:"user_agent"`
	UserOS      string    `json:"user_os"      db:"user_os"`
	UserBrowser string    `json:"user_browser" db:"user_browser"`
	CreateTime  time.Time `json:"create_time"  db:"create_time"`
	EndTime     time.Time `json:"end_time"     db:"end_time"`
}

// IsActive reports whether the session still authenticates at now.
func (s Session) IsActive(now time.Time) bool { return s.EndTime.After(now) }

// Fingerprint returns the device fingerprint the session is keyed by.
func (s Session) Fingerprint() Fingerprint {
	return Fingerprint{IP: s.UserIP, UserAgent: s.UserAgent}
}

// Fingerprint is the (IP, User-Agent) pair used to deduplicate sessions per device.
type Fingerprint struct {
	IP        string
	UserAgent string
}

// NewFingerprint trims both parts and truncates the user agent to the storable length.
func NewFingerprint(ip, userAgent string) Fingerprint {
	ua := strings.TrimSpace(userAgent)
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return Fingerprint{IP: strings.TrimSpace(ip), UserAgent: ua}
}

type uaRule struct {
	needle string
	name   string
}

// Order matters: iOS user agents mention "Mac OS X", Android ones mention "Linux",
// Edge and Opera carry "Chrome", and Chrome carries "Safari".
var (
	osRules = []uaRule{
		{"windows", "Windows"},
		{"iphone", "iOS"},
		{"ipad", "iOS"},
		{"android", "Android"},
		{"mac os x", "macOS"},
		{"macintosh", "macOS"},
		{"cros", "ChromeOS"},
		{"linux", "Linux"},
	}
	browserRules = []uaRule{
		{"edg", "Edge"},
		{"opr/", "Opera"},
		{"opera", "Opera"},
		{"firefox", "Firefox"},
		{"fxios", "Firefox"},
		{"crios", "Chrome"},
		{"chrome", "Chrome"},
		{"safari", "Safari"},
	}
)

func matchUA(ua string, rules []uaRule) string {
	ua = strings.ToLower(ua)
	for _, r := range rules {
		if strings.Contains(ua, r.needle) {
			return r.name
		}
	}
	return "Unknown"
}

// OS returns a coarse operating system name parsed from the user agent.
func (f Fingerprint) OS() string { return matchUA(f.UserAgent, osRules) }

// Browser returns a coarse browser name parsed from the user agent.
func (f Fingerprint) Browser() string { return matchUA(f.UserAgent, browserRules) }
