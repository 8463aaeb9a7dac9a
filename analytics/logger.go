package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	logger := zap.New(core)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   logger,
	}, nil
}

func (lc *LogFileDataCollector) RecordNodeFailure(workspaceId string, sessionId string, nodeId string, reason string) {
	lc.logger.Info("node-failure", zap.String("workspaceId", workspaceId), zap.String("sessionId", sessionId), zap.String("nodeId", nodeId), zap.String("reason", reason))
}

func (lc *LogFileDataCollector) RecordApiExchange(workspaceId string, sessionId string, nodeId string, request map[string]any, status int, response any) {
	lc.logger.Info("api-exchange", zap.String("workspaceId", workspaceId), zap.String("sessionId", sessionId), zap.String("nodeId", nodeId), zap.Any("request", request), zap.Int("status", status), zap.Any("response", response))
}
