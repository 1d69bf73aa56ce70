package workflow

import (
	"strings"
)

// ExtractCode pulls the answer out of a model response. It tries, in order,
// the first ``` fenced block, then <code>...</code>, then <<<...>>>, and
// otherwise returns the whole response trimmed. A known language tag on the
// opening fence line is dropped.
func ExtractCode(text string) string {
	if body, ok := between(text, "```", "```"); ok {
		return strings.TrimSpace(dropFenceTag(body))
	}
	if body, ok := between(text, "<code>", "</code>"); ok {
		return strings.TrimSpace(body)
	}
	if body, ok := between(text, "<<<", ">>>"); ok {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(text)
}

func between(text, open, close string) (string, bool) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

var fenceTags = map[string]bool{
	"bash": true, "c": true, "c++": true, "cpp": true, "c#": true, "csharp": true,
	"css": true, "go": true, "golang": true, "hcl": true, "html": true, "java": true,
	"javascript": true, "js": true, "json": true, "kotlin": true, "lua": true,
	"markdown": true, "md": true, "php": true, "python": true, "py": true,
	"ruby": true, "rb": true, "rust": true, "rs": true, "sh": true, "shell": true,
	"sql": true, "swift": true, "text": true, "toml": true, "ts": true,
	"typescript": true, "txt": true, "xml": true, "yaml": true, "yml": true,
	"zsh": true,
}

// dropFenceTag removes a known language identifier such as "json" from the
// first line of a fenced block. The line is kept when nothing follows it.
func dropFenceTag(body string) string {
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return body
	}
	if !fenceTags[strings.TrimSpace(body[:nl])] {
		return body
	}
	if strings.TrimSpace(body[nl+1:]) == "" {
		return body
	}
	return body[nl+1:]
}

// ExtractJSON returns the JSON object in a model response: the extracted code
// if it is an object, otherwise the outermost {...} span of the whole text.
func ExtractJSON(text string) (string, bool) {
	if obj, ok := outerObject(ExtractCode(text)); ok {
		return obj, true
	}
	return outerObject(text)
}

func outerObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
