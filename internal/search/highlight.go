package search

import (
	"regexp"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// termPattern 把检索词拆成空白分隔的词项，拼成忽略大小写的
// 交替式；没有词项返回 nil
func termPattern(terms string) *regexp.Regexp {
	fields := strings.Fields(terms)
	if len(fields) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(fields))
	for _, field := range fields {
		quoted = append(quoted, regexp.QuoteMeta(field))
	}
	return regexp.MustCompile("(?i)(" + strings.Join(quoted, "|") + ")")
}

// markTerms 给命中的词项打上高亮标记，渲染阶段替换成 span
func markTerms(re *regexp.Regexp, value string) string {
	if re == nil || value == "" {
		return value
	}
	return re.ReplaceAllString(value, constants.HighlightPre+"$1"+constants.HighlightPost)
}
