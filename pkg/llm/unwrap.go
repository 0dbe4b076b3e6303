package llm

import "strings"

// UnwrapContent strips the markdown fences and surrounding chatter models
// often put around JSON output. Text that holds no JSON object is returned
// trimmed but otherwise untouched.
func UnwrapContent(content string) string {
	text := strings.TrimSpace(content)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			lang := strings.TrimSpace(text[:nl])
			if lang == "" || !strings.ContainsAny(lang, "{[") {
				text = text[nl+1:]
			}
		}
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
