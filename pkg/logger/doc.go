// Package logger provides the structured JSON logger used across the service.
//
// It is a thin wrapper around go.uber.org/zap that standardizes the call
// shape to (msg, err, fields...) so call sites never build zap.Field slices
// by hand:
//
//	logger.Info("embedding stored", nil, map[string]interface{}{
//	    "chunk_id": id,
//	    "kind":     "text",
//	})
//
// Configuration comes from LOG_LEVEL and SERVICE_NAME; output is JSON on
// stderr with ISO8601 timestamps. The FXModule provides *Logger to the
// application container and syncs it on shutdown.
package logger
