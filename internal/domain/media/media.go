// Package media validates hosted-video links and extracts their video ids.
package media

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/okian/blindtest/internal/domain/model"
)

// Accepted: optional http(s) scheme, optional www., youtube.com or youtu.be,
// then a non-empty path.
var urlPattern = regexp.MustCompile(`^(?i:https?://)?(?i:www\.)?(?i:youtube\.com|youtu\.be)/.+$`)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ErrInvalidURL is returned for links outside the accepted grammar.
var ErrInvalidURL = fmt.Errorf("%w: invalid media url", model.ErrValidation)

// ValidateURL checks raw against the accepted grammar.
func ValidateURL(raw string) error {
	if !urlPattern.MatchString(strings.TrimSpace(raw)) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// VideoID extracts the 11-character id from a valid link. It returns "" when
// the link is valid but carries no recognizable id (e.g. a channel page).
func VideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if ValidateURL(raw) != nil {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var candidate string
	switch {
	case host == "youtu.be":
		candidate = segments[0]
	case u.Query().Get("v") != "":
		candidate = u.Query().Get("v")
	case len(segments) >= 2:
		switch segments[0] {
		case "embed", "shorts", "v", "live", "e":
			candidate = segments[1]
		}
	}
	if videoIDPattern.MatchString(candidate) {
		return candidate
	}
	return ""
}
