// Package temporal bridges the process-level zap logger into the Temporal
// SDK's logging interface.
package temporal

import (
	"fmt"
	"reflect"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type sdkLogger struct {
	base *zap.Logger
}

// NewLogger wraps a zap logger for use as the Temporal client logger. The
// extra caller skip keeps log entries pointing at SDK call sites instead of
// this bridge.
func NewLogger(base *zap.Logger) log.Logger {
	return &sdkLogger{base: base.WithOptions(zap.AddCallerSkip(1))}
}

func (l *sdkLogger) Debug(msg string, keyvals ...interface{}) { l.log(zapcore.DebugLevel, msg, keyvals) }
func (l *sdkLogger) Info(msg string, keyvals ...interface{})  { l.log(zapcore.InfoLevel, msg, keyvals) }
func (l *sdkLogger) Warn(msg string, keyvals ...interface{})  { l.log(zapcore.WarnLevel, msg, keyvals) }
func (l *sdkLogger) Error(msg string, keyvals ...interface{}) { l.log(zapcore.ErrorLevel, msg, keyvals) }

func (l *sdkLogger) log(level zapcore.Level, msg string, keyvals []interface{}) {
	l.base.Log(level, msg, pairFields(keyvals)...)
}

// With satisfies the SDK's log.WithLogger so per-workflow context sticks.
func (l *sdkLogger) With(keyvals ...interface{}) log.Logger {
	return &sdkLogger{base: l.base.With(pairFields(keyvals)...)}
}

// pairFields converts the SDK's flat key/value list into zap fields. Keys
// that are not strings are skipped, as is a trailing key without a value.
func pairFields(keyvals []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, coerceField(key, keyvals[i+1]))
	}
	return fields
}

// coerceField builds a zap field from an arbitrary SDK value. zap.Any panics
// on funcs, channels and unsafe pointers, so those become placeholders, and a
// panic from anything else is caught and stringified.
func coerceField(key string, val interface{}) (field zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			field = zap.String(key, fmt.Sprintf("<unserializable: %v>", r))
		}
	}()

	if val == nil {
		return zap.String(key, "<nil>")
	}
	switch reflect.TypeOf(val).Kind() {
	case reflect.Func:
		return zap.String(key, "<func>")
	case reflect.Chan:
		return zap.String(key, "<chan>")
	case reflect.UnsafePointer:
		return zap.String(key, "<unsafe.Pointer>")
	}
	return zap.Any(key, val)
}
