package delivery

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	summarySentences = 3
	summaryMaxRunes  = 250
	maxKeyPoints     = 3
)

var (
	sentenceBreak = regexp.MustCompile(`[.!?]+\s+`)
	spaceRun      = regexp.MustCompile(`\s+`)
	bulletLine    = regexp.MustCompile(`(?m)^\s*[-•*]\s+(.+?)\s*$`)
	numberedLine  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+?)\s*$`)
)

// keyPhrases mark sentences worth surfacing when a description has no list.
var keyPhrases = []string{
	"need", "required", "must", "should", "looking for",
	"experience", "skills", "develop", "create", "build",
}

// Summary is a short digest of a listing description.
type Summary struct {
	Text      string
	KeyPoints []string
}

// Markdown renders s as the Slack description section.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("*Summary:*\n")
	b.WriteString(s.Text)
	if len(s.KeyPoints) > 0 {
		b.WriteString("\n\n*Key Points:*")
		for _, p := range s.KeyPoints {
			b.WriteString("\n• ")
			b.WriteString(p)
		}
	}
	return b.String()
}

// Summarize keeps the leading sentences of desc within summaryMaxRunes and
// picks up to three key points: list items first, otherwise sentences that
// state a requirement.
func Summarize(desc string) Summary {
	if strings.TrimSpace(desc) == "" {
		return Summary{}
	}
	return Summary{Text: leadSentences(desc), KeyPoints: keyPoints(desc)}
}

func leadSentences(desc string) string {
	text := strings.TrimSpace(spaceRun.ReplaceAllString(desc, " "))
	if utf8.RuneCountInString(text) <= summaryMaxRunes {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) > summarySentences {
		sentences = sentences[:summarySentences]
	}
	out := strings.Join(sentences, ". ")
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	if utf8.RuneCountInString(out) <= summaryMaxRunes {
		return out
	}

	cut := string([]rune(out)[:summaryMaxRunes])
	// Prefer ending on a full sentence when one closes late enough.
	if i := strings.LastIndex(cut, "."); i >= 0 && utf8.RuneCountInString(cut[:i]) > summaryMaxRunes*7/10 {
		return cut[:i+1]
	}
	return strings.TrimSpace(cut) + "..."
}

func keyPoints(desc string) []string {
	for _, re := range []*regexp.Regexp{bulletLine, numberedLine} {
		var points []string
		for _, m := range re.FindAllStringSubmatch(desc, maxKeyPoints) {
			if p := strings.TrimSpace(m[1]); p != "" {
				points = append(points, p)
			}
		}
		if len(points) > 0 {
			return points
		}
	}

	var points []string
	for _, s := range splitSentences(desc) {
		low := strings.ToLower(s)
		for _, k := range keyPhrases {
			if strings.Contains(low, k) {
				points = append(points, spaceRun.ReplaceAllString(s, " "))
				break
			}
		}
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceBreak.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
