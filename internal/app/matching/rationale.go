package matching

import (
	"sort"
	"strings"

	"github.com/yigit/credittransfer/internal/pkg/textnorm"
)

const maxKeywords = 10

// Rationale messages
const (
	InsufficientDataMessage = "Unable to explain the match: one or both course descriptions are missing."
	ContextualMatchMessage  = "The descriptions are similar in context and structure, although no specific keywords match exactly (synonyms may be in use)."
	NoCandidatesMessage     = "The target curriculum has no courses to compare against."
	keywordMessagePrefix    = "Both course descriptions cover the same key topics: "
	keywordMessageSuffix    = ", indicating consistent core content."
)

// stopWords are connectives and generic academic filler in Thai and English
// that say nothing about course content.
var stopWords = map[string]struct{}{
	"การ": {}, "ความ": {}, "และ": {}, "ใน": {}, "ของ": {}, "ที่": {}, "ได้": {},
	"ศึกษา": {}, "เกี่ยวกับ": {}, "เพื่อ": {}, "โดย": {}, "เป็น": {}, "มี": {}, "จาก": {},
	"หลักการ": {}, "ทฤษฎี": {}, "เบื้องต้น": {}, "ปฏิบัติ": {}, "ระบบ": {}, "งาน": {},
	"ทาง": {}, "ด้าน": {}, "กระบวนการ": {}, "พื้นฐาน": {},
	"structure": {}, "introduction": {}, "basic": {}, "principle": {}, "system": {},
	"analysis": {}, "and": {}, "of": {}, "the": {}, "in": {}, "to": {}, "for": {},
	"with": {}, "study": {}, "a": {}, "an": {},
}

// Keywords returns the content words shared by both texts, longest first,
// capped at ten. Ties in length are ordered alphabetically.
func Keywords(a, b string) []string {
	common := textnorm.Normalize(a).Intersect(textnorm.Normalize(b))

	keywords := make([]string, 0, len(common))
	for tok := range common {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if textnorm.Len(tok) <= 2 {
			continue
		}
		keywords = append(keywords, tok)
	}

	sort.Slice(keywords, func(i, j int) bool {
		li, lj := textnorm.Len(keywords[i]), textnorm.Len(keywords[j])
		if li != lj {
			return li > lj
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// GenerateReasoning explains a match through keyword overlap. It does not
// look at the similarity score.
func GenerateReasoning(a, b string) string {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return InsufficientDataMessage
	}

	keywords := Keywords(a, b)
	if len(keywords) == 0 {
		return ContextualMatchMessage
	}

	return keywordMessagePrefix + `"` + strings.Join(keywords, ", ") + `"` + keywordMessageSuffix
}
