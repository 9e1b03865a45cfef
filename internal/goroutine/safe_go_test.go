package goroutine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/escrow-backend/internal/logger"
)

type captureLogger struct {
	messages chan string
}

func (l *captureLogger) Errorf(format string, args ...interface{}) {
	l.messages <- fmt.Sprintf(format, args...)
}

func TestRecoveryHandler_SafeGo_RecoversPanic(t *testing.T) {
	capture := &captureLogger{messages: make(chan string, 1)}
	handler := NewRecoveryHandler(capture)

	handler.SafeGo(func() {
		panic("boom")
	})

	select {
	case msg := <-capture.messages:
		assert.Contains(t, msg, "boom")
	case <-time.After(time.Second):
		t.Fatal("panic не был перехвачен")
	}
}

func TestSafeGo_ResolvesGlobalLoggerLazily(t *testing.T) {
	// Глобальный логгер инициализируется после создания DefaultRecoveryHandler
	log, hook := test.NewNullLogger()
	logger.Log = log
	defer func() { logger.Log = nil }()

	SafeGo(func() {
		panic("boom")
	})

	assert.Eventually(t, func() bool {
		return len(hook.AllEntries()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "boom")
}

func TestSafeGo_SurvivesPanicWithoutAnyLogger(t *testing.T) {
	logger.Log = nil

	done := make(chan struct{})
	SafeGo(func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("горутина не завершилась")
	}
	// Даем recover отработать: процесс не должен упасть
	time.Sleep(50 * time.Millisecond)
}

func TestSafeGoWithContext_RecoversPanic(t *testing.T) {
	capture := &captureLogger{messages: make(chan string, 1)}
	handler := NewRecoveryHandler(capture)

	handler.SafeGoWithContext(context.Background(), func(ctx context.Context) {
		panic("boom with context")
	})

	select {
	case msg := <-capture.messages:
		assert.Contains(t, msg, "boom with context")
	case <-time.After(time.Second):
		t.Fatal("panic не был перехвачен")
	}
}
