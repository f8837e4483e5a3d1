// Package interview holds the interview domain model and the call
// controller that drives one practice session from start to feedback.
package interview

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Interview is one generated mock interview: the role it targets, the
// questions the agent will ask and who it belongs to.
type Interview struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Role       string    `json:"role"`
	Level      string    `json:"level"`
	Type       string    `json:"type"`
	Techstack  []string  `json:"techstack"`
	Questions  []string  `json:"questions"`
	Finalized  bool      `json:"finalized"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Profile identifies the candidate taking a call.
type Profile struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// NormalizeTechstack splits a comma-separated stack string into trimmed
// technology names, dropping empty entries.
func NormalizeTechstack(raw string) []string {
	var stack []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			stack = append(stack, name)
		}
	}
	return stack
}

// CallVariables builds the template variables for one call attempt.
// Questions render as a 1-based numbered list, one per line, so the
// agent reads them out in order. The map is built fresh every time and
// never stored.
func CallVariables(profile Profile, questions []string) map[string]string {
	vars := map[string]string{
		"username": profile.Name,
		"userid":   profile.ID,
	}
	if len(questions) > 0 {
		vars["questions"] = formatQuestions(questions)
	}
	return vars
}

func formatQuestions(questions []string) string {
	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, q)
	}
	return b.String()
}

// covers are the stock company logos shown on interview cards.
var covers = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

// RandomCover picks a cover image path for a new interview.
func RandomCover() string {
	return covers[rand.Intn(len(covers))]
}
