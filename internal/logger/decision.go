package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// 中文说明：
// 决策审计日志：把每次发给决策模型的提示词与原始回复落盘，便于复盘。
// 默认关闭，通过 SetDecisionWriter 注入文件后启用。

var (
	decisionMu  sync.Mutex
	decisionLog *log.Logger
)

func SetDecisionWriter(w io.Writer) {
	decisionMu.Lock()
	defer decisionMu.Unlock()
	if w == nil {
		decisionLog = nil
		return
	}
	decisionLog = log.New(w, "", log.LstdFlags)
}

type decisionSection struct {
	Title string
	Body  string
}

func logDecision(kind, role string, sections []decisionSection) {
	decisionMu.Lock()
	logger := decisionLog
	decisionMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[DECISION]")
	if kind != "" {
		b.WriteString("[")
		b.WriteString(kind)
		b.WriteString("]")
	}
	if role != "" {
		b.WriteString("[")
		b.WriteString(role)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

func LogDecisionRequest(role, systemPrompt, userPrompt string) {
	logDecision("request", role, []decisionSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func LogDecisionResponse(role, raw string) {
	logDecision("response", role, []decisionSection{{Title: "RAW", Body: raw}})
}
