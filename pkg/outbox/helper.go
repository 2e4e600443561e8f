package outbox

import (
	"encoding/json"
	"fmt"
)

// NewEvent 将 payload 编码为 JSON，构造待发布事件
// aggregateID 为 0 时不记录聚合 ID
func NewEvent(aggregateType string, aggregateID int64, routingKey string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", routingKey, err)
	}

	event := &Event{
		AggregateType: aggregateType,
		RoutingKey:    routingKey,
		Payload:       raw,
		Status:        StatusPending,
	}
	if aggregateID != 0 {
		event.AggregateID = &aggregateID
	}
	return event, nil
}
