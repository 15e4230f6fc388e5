package logger

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Storage for log keys and hooks (single source of truth)
var (
	contextConfigMu       sync.RWMutex
	logKeys               []interface{}
	clientLogContextHooks map[string]ClientLogContextHook
)

// SetLogKeys sets the context keys to be extracted from context
// This function is thread-safe and can be called at runtime.
func SetLogKeys(keys []interface{}) {
	contextConfigMu.Lock()
	defer contextConfigMu.Unlock()

	logKeys = make([]interface{}, len(keys))
	copy(logKeys, keys)
}

// GetLogKeys returns a copy of the current log keys
func GetLogKeys() []interface{} {
	contextConfigMu.RLock()
	defer contextConfigMu.RUnlock()

	keysCopy := make([]interface{}, len(logKeys))
	copy(keysCopy, logKeys)
	return keysCopy
}

// RegisterLogContextHook registers a hook for extracting context fields
// This function is thread-safe and can be called at runtime.
func RegisterLogContextHook(key string, hook ClientLogContextHook) {
	contextConfigMu.Lock()
	defer contextConfigMu.Unlock()

	if clientLogContextHooks == nil {
		clientLogContextHooks = make(map[string]ClientLogContextHook)
	}
	clientLogContextHooks[key] = hook
}

// GetClientLogContextHooks returns a copy of registered hooks
func GetClientLogContextHooks() map[string]ClientLogContextHook {
	contextConfigMu.RLock()
	defer contextConfigMu.RUnlock()

	hooksCopy := make(map[string]ClientLogContextHook, len(clientLogContextHooks))
	for k, v := range clientLogContextHooks {
		hooksCopy[k] = v
	}
	return hooksCopy
}

// extractContextFields extracts log fields from context using the log keys and hooks
func extractContextFields(ctx context.Context) logrus.Fields {
	if ctx == nil {
		return nil
	}

	contextConfigMu.RLock()
	defer contextConfigMu.RUnlock()

	fields := logrus.Fields{}
	for _, key := range logKeys {
		if val := ctx.Value(key); val != nil {
			fields[fmt.Sprint(key)] = MaskSecrets(fmt.Sprint(val))
		}
	}
	for key, hook := range clientLogContextHooks {
		if val := hook(ctx); val != "" {
			fields[key] = MaskSecrets(val)
		}
	}
	return fields
}
