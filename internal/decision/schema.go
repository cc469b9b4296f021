package decision

import (
	"encoding/json"
	"strconv"
	"strings"

	"zion/internal/logger"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// 中文说明：
// 四种阶段输出各对应一份 JSON Schema，在边界处一次性完成解析与校验。
// 进入编排器的值均已类型化；任何不合规输出都以 *SchemaError 返回。

const marketContextSchema = `{
  "type": "object",
  "required": ["prediction", "summary"],
  "properties": {
    "prediction": {"type": "string", "minLength": 1},
    "summary": {"type": "string", "minLength": 1},
    "confidence": {"type": ["number", "string"]}
  }
}`

const signalSchema = `{
  "type": "object",
  "required": ["signal"],
  "properties": {
    "signal": {"type": "string", "enum": ["BUY", "SELL", "HOLD"]},
    "confidence": {"type": ["number", "string"]},
    "reasoning": {"type": "string"},
    "timeframe": {"type": "string"}
  }
}`

const riskAssessmentSchema = `{
  "type": "object",
  "required": ["risk_assessment", "decision"],
  "properties": {
    "risk_assessment": {"type": "string", "minLength": 1},
    "position_size": {"type": ["number", "string"]},
    "decision": {"type": "string", "enum": ["GO", "NO_GO"]}
  }
}`

const executionReportSchema = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string", "minLength": 1},
    "order_id": {"type": "string"},
    "details": {"type": "string"}
  }
}`

var (
	compiledMarketContext   = jsonschema.MustCompileString("market_context.json", marketContextSchema)
	compiledSignal          = jsonschema.MustCompileString("signal.json", signalSchema)
	compiledRiskAssessment  = jsonschema.MustCompileString("risk_assessment.json", riskAssessmentSchema)
	compiledExecutionReport = jsonschema.MustCompileString("execution_report.json", executionReportSchema)
)

// extractObject 提取并预检 JSON 对象文本。
func extractObject(role Role, raw string) (string, *SchemaError) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return "", newSchemaError(role, raw, "no JSON object found in output")
	}
	if !gjson.Valid(obj) {
		return "", newSchemaError(role, raw, "extracted text is not valid JSON")
	}
	return obj, nil
}

func validateAgainst(role Role, schema *jsonschema.Schema, obj string) *SchemaError {
	var v any
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return newSchemaError(role, obj, "json decode failed: %v", err)
	}
	if err := schema.Validate(v); err != nil {
		return newSchemaError(role, obj, "schema validation failed: %v", err)
	}
	return nil
}

// numField 读取数值字段，兼容字符串形式的数字（如 "0.8"）。
func numField(obj, path string) (float64, bool) {
	r := gjson.Get(obj, path)
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.String()), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// normalizeEnum 在校验前把模型输出的枚举字段归一化为大写（含 NO-GO → NO_GO）。
func normalizeEnum(obj, path string) string {
	v := strings.ToUpper(strings.TrimSpace(gjson.Get(obj, path).String()))
	v = strings.ReplaceAll(v, "-", "_")
	if v == "" {
		return obj
	}
	patched, err := setString(obj, path, v)
	if err != nil {
		return obj
	}
	return patched
}

func setString(obj, path, value string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return "", err
	}
	m[path] = value
	out, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodeMarketContext 解析市场分析输出。
func DecodeMarketContext(raw string) (*MarketContext, error) {
	obj, serr := extractObject(RoleOracle, raw)
	if serr != nil {
		return nil, serr
	}
	if serr := validateAgainst(RoleOracle, compiledMarketContext, obj); serr != nil {
		return nil, serr
	}
	mc := &MarketContext{
		Prediction: gjson.Get(obj, "prediction").String(),
		Summary:    gjson.Get(obj, "summary").String(),
	}
	if conf, ok := numField(obj, "confidence"); ok {
		mc.Confidence = conf
	}
	return mc, nil
}

// DecodeSignal 解析信号输出。confidence 缺失或不可解析时 HasConfidence=false，
// 由编排器决定是否降级为 HELD。
func DecodeSignal(asset, raw string) (*Signal, error) {
	obj, serr := extractObject(RoleNeo, raw)
	if serr != nil {
		return nil, serr
	}
	obj = normalizeEnum(obj, "signal")
	if serr := validateAgainst(RoleNeo, compiledSignal, obj); serr != nil {
		return nil, serr
	}
	sig := &Signal{
		Asset:     asset,
		Action:    ParseAction(gjson.Get(obj, "signal").String()),
		Reasoning: gjson.Get(obj, "reasoning").String(),
		Timeframe: gjson.Get(obj, "timeframe").String(),
	}
	if conf, ok := numField(obj, "confidence"); ok && conf >= 0 && conf <= 1 {
		sig.Confidence = conf
		sig.HasConfidence = true
	}
	return sig, nil
}

// DecodeRiskAssessment 解析风控裁决。GO 且 size<=0 的矛盾输出降级为 NO_GO。
func DecodeRiskAssessment(raw string) (*RiskAssessment, error) {
	obj, serr := extractObject(RoleMorpheus, raw)
	if serr != nil {
		return nil, serr
	}
	obj = normalizeEnum(obj, "decision")
	if serr := validateAgainst(RoleMorpheus, compiledRiskAssessment, obj); serr != nil {
		return nil, serr
	}
	ra := &RiskAssessment{
		Assessment: gjson.Get(obj, "risk_assessment").String(),
		Decision:   ParseVerdict(gjson.Get(obj, "decision").String()),
	}
	if size, ok := numField(obj, "position_size"); ok && size > 0 {
		ra.PositionSize = size
	}
	if ra.Decision == VerdictGo && ra.PositionSize <= 0 {
		logger.Warnf("decision: GO verdict without positive position size, downgrading to NO_GO")
		ra.Decision = VerdictNoGo
	}
	return ra, nil
}

// DecodeExecutionReport 解析执行汇报输出。
func DecodeExecutionReport(raw string) (*ExecutionReport, error) {
	obj, serr := extractObject(RoleTrinity, raw)
	if serr != nil {
		return nil, serr
	}
	if serr := validateAgainst(RoleTrinity, compiledExecutionReport, obj); serr != nil {
		return nil, serr
	}
	return &ExecutionReport{
		Status:  gjson.Get(obj, "status").String(),
		OrderID: gjson.Get(obj, "order_id").String(),
		Details: gjson.Get(obj, "details").String(),
	}, nil
}
