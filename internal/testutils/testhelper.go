//go:build test

package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// StackSuite is the base suite for tests running against a FakeStack.
// A fresh stack is created before every test.
type StackSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	Stack       *FakeStack
	TestTimeout time.Duration
}

func (s *StackSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

func (s *StackSuite) SetupTest() {
	s.Stack = NewFakeStack()
}

// Context returns a context bounded by the suite timeout.
func (s *StackSuite) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), s.TestTimeout)
	s.T().Cleanup(cancel)
	return ctx
}

// Receive reads one value from ch or fails the test after the suite timeout.
func Receive[T any](s *StackSuite, ch <-chan T, msg string) T {
	s.T().Helper()
	select {
	case v, ok := <-ch:
		s.Require().True(ok, "%s: channel MUST be open", msg)
		return v
	case <-time.After(s.TestTimeout):
		s.FailNow("timed out", msg)
	}
	var zero T
	return zero
}

// AssertQuiet checks that nothing arrives on ch for a short while.
func AssertQuiet[T any](s *StackSuite, ch <-chan T, msg string) {
	s.T().Helper()
	select {
	case v, ok := <-ch:
		if ok {
			s.Failf("unexpected value", "%s: got %v", msg, v)
		}
	case <-time.After(50 * time.Millisecond):
	}
}
