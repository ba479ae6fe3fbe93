package simplify

import (
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultSearchLimit 默认最多返回的匹配行数
const DefaultSearchLimit = 20

// SearchOptions 搜索选项
type SearchOptions struct {
	// Fuzzy 使用模糊匹配（字符按顺序出现即可），否则为不区分大小写的子串匹配
	Fuzzy bool
	// Regex 把查询当作正则表达式（支持环视等 .NET 语法），忽略大小写
	Regex bool
	// Limit 最多返回的匹配数，<=0 使用 DefaultSearchLimit
	Limit int
}

// regexTimeout 单行匹配的超时，防止回溯爆炸
const regexTimeout = 100 * time.Millisecond

// Match 一条匹配
type Match struct {
	Chunk    int    `json:"chunk"`
	Line     int    `json:"line"` // 报告中的行号，从 1 开始
	Text     string `json:"text"`
	Distance int    `json:"distance"`
}

// SearchResult 搜索结果
type SearchResult struct {
	Query   string  `json:"query"`
	Total   int     `json:"total"` // 截断前的匹配总数
	Matches []Match `json:"matches"`
}

// Search 在报告中按行搜索关键字（例如 "penalty"），正则非法时返回 ErrInvalidParameter
func Search(report FinalReport, query string, opts SearchOptions) (SearchResult, error) {
	result := SearchResult{Query: query}
	query = strings.TrimSpace(query)
	if query == "" {
		return result, nil
	}

	var re *regexp2.Regexp
	if opts.Regex {
		var err error
		re, err = regexp2.Compile(query, regexp2.IgnoreCase)
		if err != nil {
			return result, InvalidParameterError("invalid search pattern %q: %v", query, err)
		}
		re.MatchTimeout = regexTimeout
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type line struct {
		chunk int
		no    int
		text  string
	}
	var lines []line
	chunk := 0
	for i, text := range strings.Split(string(report), "\n") {
		if strings.HasPrefix(text, SectionPrefix) {
			chunk = parseChunkIndex(strings.TrimSpace(strings.TrimPrefix(text, SectionPrefix)))
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, line{chunk: chunk, no: i + 1, text: text})
	}

	var matches []Match
	switch {
	case re != nil:
		for _, l := range lines {
			m, err := re.FindStringMatch(l.text)
			if err != nil {
				return result, InvalidParameterError("search pattern %q: %v", query, err)
			}
			if m != nil {
				matches = append(matches, Match{Chunk: l.chunk, Line: l.no, Text: l.text})
			}
		}
	case opts.Fuzzy:
		targets := make([]string, len(lines))
		for i, l := range lines {
			targets[i] = l.text
		}
		ranks := fuzzy.RankFindFold(query, targets)
		sort.Sort(ranks)
		for _, r := range ranks {
			l := lines[r.OriginalIndex]
			matches = append(matches, Match{Chunk: l.chunk, Line: l.no, Text: l.text, Distance: r.Distance})
		}
	default:
		lower := strings.ToLower(query)
		for _, l := range lines {
			if strings.Contains(strings.ToLower(l.text), lower) {
				matches = append(matches, Match{Chunk: l.chunk, Line: l.no, Text: l.text})
			}
		}
	}

	result.Total = len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	result.Matches = matches
	return result, nil
}
