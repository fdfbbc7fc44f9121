package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/itzana/itzanago/pkg/utils"
)

// SaveAnswer writes a markdown answer under dir and returns the file path.
func SaveAnswer(dir, question, markdown string) (string, error) {
	name := fmt.Sprintf("%s_%s.md", time.Now().Format("20060102_150405"), slug(question, 40))
	return utils.WriteMarkdown(dir, name, markdown)
}

func slug(s string, max int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= max {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > max {
		out = strings.Trim(out[:max], "-")
	}
	if out == "" {
		return "answer"
	}
	return out
}
