package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"wastereminder/pkg/trace"
)

// InsertEventInTx 在事务中插入事件到 outbox（辅助函数）。
// ctx 中的 trace_id 会被写入 payload，便于 Dispatcher 发布时继续传播
func InsertEventInTx(
	ctx context.Context,
	tx DBTX,
	repo *Repository,
	aggregateType string,
	aggregateID *int64,
	routingKey string,
	payload interface{},
) (*Event, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	payloadJSON = withTraceID(payloadJSON, trace.FromContext(ctx))

	event := &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	}
	if err := repo.InsertEvent(ctx, tx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// withTraceID 向 JSON 对象 payload 补充 trace_id 字段（已存在时保留原值）
func withTraceID(payload []byte, traceID string) []byte {
	if traceID == "" {
		return payload
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload
	}
	if _, ok := m["trace_id"]; ok {
		return payload
	}
	m["trace_id"], _ = json.Marshal(traceID)
	out, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return out
}

// traceIDFromPayload 从 payload 中提取 trace_id
func traceIDFromPayload(payload []byte) string {
	var m struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		return ""
	}
	return m.TraceID
}
