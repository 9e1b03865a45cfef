package goroutine

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/ignatzorin/escrow-backend/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик. При nil логгере паники
// пишутся в общий logger.Log, а до его инициализации в stderr.
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.report(r, debug.Stack())
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.report(r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}

// report пишет panic в доступный логгер. Общий logger.Log разрешается
// в момент паники, а не при создании обработчика.
func (rh *RecoveryHandler) report(r interface{}, stack []byte) {
	switch {
	case rh.logger != nil:
		rh.logger.Errorf("panic в горутине: %v\n%s", r, stack)
	case logger.Log != nil:
		logger.Log.Errorf("panic в горутине: %v\n%s", r, stack)
	default:
		fmt.Fprintf(os.Stderr, "[ERROR] panic в горутине: %v\n%s\n", r, stack)
	}
}

// DefaultRecoveryHandler - глобальный обработчик, пишущий в общий логгер
var DefaultRecoveryHandler = NewRecoveryHandler(nil)

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
