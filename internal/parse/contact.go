package parse

import (
	"regexp"
	"strings"
)

// Contact holds identity fields parsed from resume text.
type Contact struct {
	Name  string
	Email string
	Phone string
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[0-9][0-9\s().\-]{7,18}[0-9]`)
)

// FromText pulls the first email, a phone number, and a best-effort name
// from extracted resume text. The email may be empty when none is present;
// callers decide whether that is an error.
func FromText(text string) Contact {
	var c Contact
	c.Email = strings.ToLower(emailRe.FindString(text))
	c.Phone = strings.TrimSpace(phoneRe.FindString(text))
	c.Name = guessName(text)
	return c
}

// guessName takes the first non-empty line that does not look like
// contact data or a section heading. Resumes almost always lead with
// the candidate's name.
func guessName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if emailRe.MatchString(line) || phoneRe.MatchString(line) {
			continue
		}
		if looksLikeHeading(line) {
			continue
		}
		if len(line) > 60 {
			continue
		}
		return line
	}
	return ""
}

func looksLikeHeading(line string) bool {
	upper := strings.ToUpper(line)
	switch upper {
	case "RESUME", "CURRICULUM VITAE", "CV", "SUMMARY", "PROFILE", "OBJECTIVE":
		return true
	}
	return strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://")
}
