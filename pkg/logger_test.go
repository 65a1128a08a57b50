package pkg_test

import (
	"sync"
	"testing"

	. "github.com/tobsdb/tdbstore/pkg"
	"gotest.tools/assert"
)

func TestSetLogLevelWhileLogging(t *testing.T) {
	defer SetLogLevel(GetLogLevel())

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				DebugLog("worker", i)
			}
		}()
	}
	for range 20 {
		SetLogLevel(LogLevelNone)
		SetLogLevel(LogLevelErrOnly)
	}
	wg.Wait()

	SetLogLevel(LogLevelWarn)
	assert.Equal(t, GetLogLevel(), LogLevelWarn)
	assert.Assert(t, Logger() != nil)
}
