package asagi

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/constants"
)

const gtgt = "&gt;&gt;"

// ExtractQuotelinks 从已转义的评论中提取引用的帖号。
// 仅认 &gt;&gt; 开头的行；token 必须是不带前导零的纯数字，>>0 不算引用。
func ExtractQuotelinks(comment string, escaped bool) []uint32 {
	if comment == "" {
		return nil
	}
	if !escaped {
		comment = html.EscapeString(comment)
	}
	var quotelinks []uint32
	for _, line := range strings.Split(comment, "\n") {
		if !strings.HasPrefix(line, gtgt) {
			continue
		}
		for _, token := range strings.Split(line, " ") {
			if !strings.HasPrefix(token, gtgt) {
				continue
			}
			if num, ok := parseQuotedNum(token[len(gtgt):]); ok {
				quotelinks = append(quotelinks, num)
			}
		}
	}
	return quotelinks
}

// parseQuotedNum 校验引用帖号：纯数字、非零、无前导零
func parseQuotedNum(s string) (uint32, bool) {
	if s == "" || s[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	num, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(num), true
}

// QuotelinkLookup 汇总本线程内的反向引用关系：被引帖号 -> 引用它的帖号列表
func QuotelinkLookup(numComments map[uint32]string, order []uint32) map[uint32][]uint32 {
	lookup := make(map[uint32][]uint32)
	for _, num := range order {
		comment := numComments[num]
		if comment == "" {
			continue
		}
		for _, quoted := range ExtractQuotelinks(comment, false) {
			lookup[quoted] = append(lookup[quoted], num)
		}
	}
	return lookup
}

var (
	bbcodeRe  = regexp.MustCompile(`(?s)\[(spoiler|code|banned)\].+\[/(spoiler|code|banned)\]`)
	spoilerRe = regexp.MustCompile(`(?s)\[spoiler\](.*?)\[/spoiler\]`)
	codeRe    = regexp.MustCompile(`(?s)\[code\](.*?)\[/code\]`)
	bannedRe  = regexp.MustCompile(`(?s)\[banned\](.*?)\[/banned\]`)

	greentextRe = regexp.MustCompile(`(?m)^&gt;.*$`)

	linkRe = regexp.MustCompile(`(?i)(https?://([a-z0-9]+\.)+[a-z]{2,}[a-z0-9/?&=\-_()+.;,]+)[.,]?`)

	quotelinkRe = regexp.MustCompile(`&gt;&gt;([1-9][0-9]*)`)

	hlMarkRe = regexp.MustCompile(
		regexp.QuoteMeta(constants.HighlightPre) + `(.+?)` + regexp.QuoteMeta(constants.HighlightPost))
)

// HTMLComment 渲染评论为 HTML。
// 顺序：转义、替换高亮标记、引用链接、绿字、bbcode、可点击链接、换行转 <br>。
func HTMLComment(comment string, opNum uint32, board string, highlight bool) string {
	if comment == "" {
		return ""
	}
	hasAngle := strings.ContainsAny(comment, "<>")
	hasSquare := strings.Contains(comment, "[")
	if hasAngle {
		comment = html.EscapeString(comment)
	}
	if highlight {
		comment = HTMLHighlight(comment)
	}
	if hasAngle {
		comment = htmlQuotelinks(comment, board, opNum)
	}
	if hasSquare {
		comment = htmlBBCode(comment)
	}
	if hasAngle {
		comment = htmlGreentext(comment)
	}
	if strings.Contains(comment, "http") {
		comment = clickableLinks(comment)
	}
	return strings.ReplaceAll(comment, "\n", "<br>")
}

// HTMLTitle 转义标题
func HTMLTitle(title string) string {
	if title == "" {
		return ""
	}
	return html.EscapeString(title)
}

// HTMLHighlight 把成对的高亮标记替换为 span 包裹
func HTMLHighlight(comment string) string {
	return hlMarkRe.ReplaceAllString(comment,
		`<span class="`+constants.HighlightClass+`">$1</span>`)
}

func htmlQuotelinks(comment string, board string, opNum uint32) string {
	return quotelinkRe.ReplaceAllStringFunc(comment, func(match string) string {
		numStr := match[len(gtgt):]
		return fmt.Sprintf(`<a href="/%s/thread/%d#p%s" class="quotelink">&gt;&gt;%s</a>`,
			board, opNum, numStr, numStr)
	})
}

func htmlBBCode(comment string) string {
	if !bbcodeRe.MatchString(comment) {
		return comment
	}
	comment = spoilerRe.ReplaceAllString(comment, `<span class="spoiler">$1</span>`)
	comment = codeRe.ReplaceAllString(comment, `<code><pre>$1</pre></code>`)
	comment = bannedRe.ReplaceAllString(comment, `<span class="banned">$1</span>`)
	return comment
}

func htmlGreentext(comment string) string {
	return greentextRe.ReplaceAllStringFunc(comment, func(line string) string {
		// 指向帖号的 &gt;&gt;123 是引用不是绿字
		rest := line[len("&gt;"):]
		if strings.HasPrefix(rest, "&gt;") {
			after := rest[len("&gt;"):]
			if after != "" && after[0] >= '0' && after[0] <= '9' {
				return line
			}
		}
		return `<span class="quote">` + line + `</span>`
	})
}

func clickableLinks(comment string) string {
	return linkRe.ReplaceAllString(comment, `<a href="$1">$1</a>`)
}
