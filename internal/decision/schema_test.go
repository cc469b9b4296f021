package decision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMarketContext(t *testing.T) {
	mc, err := DecodeMarketContext(`{"prediction": "up", "summary": "bullish momentum", "confidence": 0.7}`)
	require.NoError(t, err)
	assert.Equal(t, "up", mc.Prediction)
	assert.InDelta(t, 0.7, mc.Confidence, 1e-9)

	// 代码块包裹的输出也能解析
	fenced := "Here is my analysis:\n```json\n{\"prediction\": \"down\", \"summary\": \"weak\"}\n```"
	mc, err = DecodeMarketContext(fenced)
	require.NoError(t, err)
	assert.Equal(t, "down", mc.Prediction)

	// 字符串形式的数字可以接受
	mc, err = DecodeMarketContext(`{"prediction": "up", "summary": "ok", "confidence": "0.55"}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, mc.Confidence, 1e-9)

	_, err = DecodeMarketContext("no json here at all")
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, RoleOracle, serr.Role)

	_, err = DecodeMarketContext(`{"summary": "missing prediction"}`)
	assert.ErrorAs(t, err, &serr)
}

func TestDecodeSignal(t *testing.T) {
	sig, err := DecodeSignal("BTCUSDT", `{"signal": "BUY", "confidence": 0.82, "reasoning": "breakout"}`)
	require.NoError(t, err)
	assert.Equal(t, ActionBuy, sig.Action)
	assert.True(t, sig.HasConfidence)
	assert.InDelta(t, 0.82, sig.Confidence, 1e-9)
	assert.Equal(t, "BTCUSDT", sig.Asset)

	// 小写枚举归一化
	sig, err = DecodeSignal("BTCUSDT", `{"signal": "sell", "confidence": 0.6}`)
	require.NoError(t, err)
	assert.Equal(t, ActionSell, sig.Action)

	// confidence 缺失 → HasConfidence=false
	sig, err = DecodeSignal("BTCUSDT", `{"signal": "BUY", "reasoning": "pattern"}`)
	require.NoError(t, err)
	assert.False(t, sig.HasConfidence)

	// confidence 越界 → 不认
	sig, err = DecodeSignal("BTCUSDT", `{"signal": "BUY", "confidence": 1.4}`)
	require.NoError(t, err)
	assert.False(t, sig.HasConfidence)

	// 非法枚举 → SchemaError
	_, err = DecodeSignal("BTCUSDT", `{"signal": "SHORT"}`)
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestDecodeRiskAssessment(t *testing.T) {
	ra, err := DecodeRiskAssessment(`{"risk_assessment": "acceptable", "position_size": 0.02, "decision": "GO"}`)
	require.NoError(t, err)
	assert.Equal(t, VerdictGo, ra.Decision)
	assert.InDelta(t, 0.02, ra.PositionSize, 1e-9)

	// NO-GO 连字符写法归一化
	ra, err = DecodeRiskAssessment(`{"risk_assessment": "too risky", "decision": "no-go"}`)
	require.NoError(t, err)
	assert.Equal(t, VerdictNoGo, ra.Decision)

	// GO 但 size<=0 → 降级 NO_GO
	ra, err = DecodeRiskAssessment(`{"risk_assessment": "ok", "position_size": 0, "decision": "GO"}`)
	require.NoError(t, err)
	assert.Equal(t, VerdictNoGo, ra.Decision)

	// 字符串数字
	ra, err = DecodeRiskAssessment(`{"risk_assessment": "ok", "position_size": "0.05", "decision": "GO"}`)
	require.NoError(t, err)
	assert.Equal(t, VerdictGo, ra.Decision)
	assert.InDelta(t, 0.05, ra.PositionSize, 1e-9)

	_, err = DecodeRiskAssessment(`{"position_size": 1}`)
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, RoleMorpheus, serr.Role)
}

func TestDecodeExecutionReport(t *testing.T) {
	rep, err := DecodeExecutionReport(`{"status": "filled", "order_id": "abc", "details": "done"}`)
	require.NoError(t, err)
	assert.Equal(t, "filled", rep.Status)
	assert.Equal(t, "abc", rep.OrderID)

	_, err = DecodeExecutionReport(`{"order_id": "abc"}`)
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject(`prefix {"a": {"b": "}"}, "c": 1} suffix`)
	require.True(t, ok)
	assert.JSONEq(t, `{"a": {"b": "}"}, "c": 1}`, obj)

	_, ok = ExtractJSONObject("nothing structured")
	assert.False(t, ok)

	_, ok = ExtractJSONObject(`{"unterminated": true`)
	assert.False(t, ok)
}

func TestParseFailClosed(t *testing.T) {
	assert.Equal(t, ActionHold, ParseAction("LONG"))
	assert.Equal(t, ActionBuy, ParseAction(" buy "))
	assert.Equal(t, VerdictNoGo, ParseVerdict("MAYBE"))
	assert.Equal(t, VerdictGo, ParseVerdict("go"))
}

func TestSchemaErrorUnwrap(t *testing.T) {
	_, err := DecodeSignal("BTCUSDT", "garbage")
	require.Error(t, err)
	var serr *SchemaError
	require.True(t, errors.As(err, &serr))
	assert.Contains(t, serr.Error(), "neo")
}
