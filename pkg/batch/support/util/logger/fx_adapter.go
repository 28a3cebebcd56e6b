package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx lifecycle events into the leveled logger.
// Construction noise (Provided, Invoking, hooks) goes to DEBUG; failures always go to ERROR.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("OnStart hook executing: %s (caller %s)", shortFunctionName(e.FunctionName), shortFunctionName(e.CallerName))
	case *fxevent.OnStartExecuted:
		logHookResult("OnStart", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		Debugf("OnStop hook executing: %s (caller %s)", shortFunctionName(e.FunctionName), shortFunctionName(e.CallerName))
	case *fxevent.OnStopExecuted:
		logHookResult("OnStop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supply failed for %s: %v", e.TypeName, e.Err)
			return
		}
		Debugf("Supplied: %s", e.TypeName)
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provide failed in %s: %v", shortFunctionName(e.ConstructorName), e.Err)
			return
		}
		Debugf("Provided %s by %s", strings.Join(e.OutputTypeNames, ", "), shortFunctionName(e.ConstructorName))
	case *fxevent.Decorated:
		if e.Err != nil {
			Errorf("Decorate failed in %s: %v", shortFunctionName(e.DecoratorName), e.Err)
		}
	case *fxevent.Invoking:
		Debugf("Invoking: %s", shortFunctionName(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s, error: %v", shortFunctionName(e.FunctionName), e.Err)
		}
	case *fxevent.Stopping:
		Infof("Received %s, stopping weather ETL.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
			return
		}
		Infof("Weather ETL application started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

func logHookResult(kind, functionName, runtime string, err error) {
	if err != nil {
		Errorf("%s hook failed: %s, error: %v", kind, shortFunctionName(functionName), err)
		return
	}
	Debugf("%s hook executed: %s in %s", kind, shortFunctionName(functionName), runtime)
}

// shortFunctionName strips anonymous function suffixes (".func1") and the module path so
// that log lines show "internal/app.startScheduler" instead of the fully qualified symbol.
func shortFunctionName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		funcName = funcName[:idx]
	}
	if idx := strings.Index(funcName, "weather-etl/"); idx != -1 {
		funcName = funcName[idx+len("weather-etl/"):]
	}
	return funcName
}
