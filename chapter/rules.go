package chapter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinBodyLength is the shortest trimmed body, in runes, kept as a chapter.
const MinBodyLength = 100

// titleKeywords mark front and back matter by title.
var titleKeywords = []string{
	"index",
	"glossary",
	"bibliography",
	"references",
	"appendix",
	"appendices",
	"table of contents",
	"contents",
	"acknowledgments",
	"acknowledgements",
	"preface",
	"foreword",
	"introduction",
	"conclusion",
	"notes",
	"credits",
}

var (
	// Apple.... 123
	indexLine = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}'’-]*[ \t]*\.{3,}[ \t]*\d+(?:[ \t]*,[ \t]*\d+)*$`)

	// Apple - A round fruit.
	glossaryLine = regexp.MustCompile(`^[\p{L}][\p{L}'’-]*[ \t]*(?:-|–|—|:|\.)[ \t]+\p{Lu}`)

	// Smith, 1999. Title
	bibliographyLine = regexp.MustCompile(`^\p{Lu}[\p{L}'’-]*,[ \t]+(?:[^\n]*?[ \t])?\d{4}[a-z]?\.[ \t]+\p{Lu}`)

	// 1. Beginnings ..... 7
	tocLine = regexp.MustCompile(`^\d+\.[ \t]+\p{Lu}[^\n]*?[ \t]*\.{3,}[ \t]*\d+$`)
)

// Rule decides whether a candidate is front or back matter.
type Rule struct {
	Name  string
	Match func(c Chapter) bool
}

// DefaultRules returns the exclusion rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "title keyword", Match: titleHasKeyword},
		{Name: "index", Match: densityRule(indexLine, 0.30)},
		{Name: "glossary", Match: densityRule(glossaryLine, 0.40)},
		{Name: "bibliography", Match: densityRule(bibliographyLine, 0.30)},
		{Name: "table of contents", Match: densityRule(tocLine, 0.40)},
		{Name: "too short", Match: tooShort},
	}
}

func titleHasKeyword(c Chapter) bool {
	title := strings.ToLower(c.Title)
	for _, kw := range titleKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// densityRule matches bodies where more than ratio of the non-blank lines
// match re. The threshold is truncated to an integer line count.
func densityRule(re *regexp.Regexp, ratio float64) func(Chapter) bool {
	return func(c Chapter) bool {
		total, matched := 0, 0
		for _, line := range strings.Split(c.Body, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			total++
			if re.MatchString(line) {
				matched++
			}
		}
		if total == 0 {
			return false
		}
		return matched > int(float64(total)*ratio)
	}
}

func tooShort(c Chapter) bool {
	return utf8.RuneCountInString(strings.TrimSpace(c.Body)) < MinBodyLength
}
