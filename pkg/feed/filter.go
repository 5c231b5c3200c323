package feed

import (
	"strings"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

// ApplyKeywordFilter 对候选集做大小写不敏感的子串过滤。
// 排除词优先：命中任一排除词直接丢弃；包含词非空时至少需命中一个。
func ApplyKeywordFilter(candidates []model.PaperCandidate, include, exclude []string) []model.PaperCandidate {
	inc := normalizeTerms(include)
	exc := normalizeTerms(exclude)

	out := make([]model.PaperCandidate, 0, len(candidates))
	for _, c := range candidates {
		text := strings.ToLower(c.TitleEN + "\n" + c.Abstract)
		if matchAny(text, exc) {
			continue
		}
		if len(inc) > 0 && !matchAny(text, inc) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, strings.ToLower(t))
	}
	return out
}

func matchAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
