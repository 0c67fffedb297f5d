package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// BuildFingerprint hashes the canonical comment text so a unit keeps its
// fingerprint when surrounding lines move or whitespace changes.
func BuildFingerprint(unit *DocUnit) string {
	if unit == nil {
		return ""
	}

	lang := strings.TrimSpace(unit.Language)
	if lang == "" {
		lang = "jsdoc"
	}

	fingerprint := strings.Join([]string{
		lang,
		unit.Filepath,
		canonicalize(unit.Content),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:8])
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
