package telegram

import "strings"

// escapeMarkdown 转义Markdown消息中的特殊字符，避免交易哈希等内容破坏格式
func escapeMarkdown(input string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(input)
}
