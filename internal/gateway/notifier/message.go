package notifier

import (
	"fmt"
	"strings"
	"time"
)

const maxMessageLen = 3800

// CycleMessage 周期结果推送的结构化内容。
type CycleMessage struct {
	Asset     string
	State     string
	Action    string
	Size      float64
	Price     float64
	Reason    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，自动裁剪长度。
func (m CycleMessage) RenderMarkdown() string {
	var b strings.Builder
	icon := stateIcon(m.State)
	b.WriteString(strings.TrimSpace(icon+" "+m.Asset+" "+m.State) + "\n\n")
	b.WriteString("```\n")
	if m.Action != "" {
		b.WriteString(fmt.Sprintf("- action: %s\n", sanitize(m.Action)))
	}
	if m.Size > 0 {
		b.WriteString(fmt.Sprintf("- size: %.6f\n", m.Size))
	}
	if m.Price > 0 {
		b.WriteString(fmt.Sprintf("- price: %.2f\n", m.Price))
	}
	if reason := strings.TrimSpace(m.Reason); reason != "" {
		b.WriteString("- reason: " + sanitize(reason) + "\n")
	}
	b.WriteString("```\n\n")
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

func stateIcon(state string) string {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "FILLED_OR_OPEN":
		return "✅"
	case "REJECTED":
		return "🚫"
	case "HELD":
		return "⏸"
	case "ERROR":
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	return s
}
