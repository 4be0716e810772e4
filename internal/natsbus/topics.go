package natsbus

import "fmt"

// Topic patterns for NATS pub/sub communication.

const (
	TopicToolsList = "tools.list"
	TopicToolsCall = "tools.call"
)

func TopicEventsTask(sessionID string) string {
	return fmt.Sprintf("events.task.%s", sessionID)
}

func TopicEventsRequest(sessionID string) string {
	return fmt.Sprintf("events.request.%s", sessionID)
}

const (
	TopicEventsAll      = "events.>"
	TopicEventsTasks    = "events.task.*"
	TopicEventsRequests = "events.request.*"
	TopicEventsLedger   = "events.ledger.pruned"
)
