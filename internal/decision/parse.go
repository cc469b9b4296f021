package decision

import "strings"

// ExtractJSONObject 从模型原始输出中提取首个配平的 JSON 对象文本。
// 模型经常在对象前后夹杂说明文字或 markdown 代码栅栏，这里只做括号配平，
// 不做完整解析；合法性由 schema 校验兜底。
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}
