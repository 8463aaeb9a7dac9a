// Package analytics records flow execution events out of band: node
// failures and the request/response pair of every outbound api-call,
// separated from the service log so they can be shipped and queried on
// their own.
package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

type FlowDataCollector interface {
	RecordNodeFailure(workspaceId string, sessionId string, nodeId string, reason string)
	RecordApiExchange(workspaceId string, sessionId string, nodeId string, request map[string]any, status int, response any)
}

var flowCollector FlowDataCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		flowCollector = c
	}
	return nil
}

func RecordNodeFailure(workspaceId string, sessionId string, nodeId string, reason string) {
	flowCollector.RecordNodeFailure(workspaceId, sessionId, nodeId, reason)
}

func RecordApiExchange(workspaceId string, sessionId string, nodeId string, request map[string]any, status int, response any) {
	flowCollector.RecordApiExchange(workspaceId, sessionId, nodeId, request, status, response)
}

type noopCollector struct{}

func (noopCollector) RecordNodeFailure(workspaceId string, sessionId string, nodeId string, reason string) {
}

func (noopCollector) RecordApiExchange(workspaceId string, sessionId string, nodeId string, request map[string]any, status int, response any) {
}
