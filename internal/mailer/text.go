package mailer

import (
	"strings"

	"golang.org/x/net/html"
)

// skipContent は本文として扱わない要素。
var skipContent = map[string]bool{
	"head":   true,
	"style":  true,
	"script": true,
	"title":  true,
}

// blockElements は前後で改行する要素。
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "ul": true, "ol": true,
}

// HTMLToText はメールHTMLからテキスト版の本文を生成する。
// リンクは "テキスト (URL)" の形に展開する。mailto:リンクは展開しない。
func HTMLToText(htmlBody string) string {
	z := html.NewTokenizer(strings.NewReader(htmlBody))

	var (
		b        strings.Builder
		skip     int
		hrefs    []string
		listItem bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeLines(b.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if skipContent[tag] && tt == html.StartTagToken {
				skip++
				continue
			}
			if blockElements[tag] {
				b.WriteString("\n")
			}
			if tag == "li" {
				listItem = true
			}
			if tag == "a" && tt == html.StartTagToken {
				href := ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
				hrefs = append(hrefs, href)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipContent[tag] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if tag == "a" && len(hrefs) > 0 {
				href := hrefs[len(hrefs)-1]
				hrefs = hrefs[:len(hrefs)-1]
				if href != "" && !strings.HasPrefix(href, "mailto:") {
					b.WriteString(" (" + href + ")")
				}
			}
			if blockElements[tag] {
				b.WriteString("\n")
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			if listItem {
				b.WriteString("- ")
				listItem = false
			} else if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
	}
}

// normalizeLines は各行の前後空白を除去し、連続する空行を1行にまとめる。
func normalizeLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
