//go:build test

package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/testutils"
)

// Test device addresses for consistent fake peer identification
const (
	TestDeviceAddress1 = "AA:BB:CC:DD:EE:01"
	TestDeviceAddress2 = "AA:BB:CC:DD:EE:02"
)

// tick is the polling interval for Eventually assertions.
const tick = 10 * time.Millisecond

// CommandTestSuite runs commands against a FakeStack.
// All cmd/bleplug test suites embed it.
type CommandTestSuite struct {
	testutils.StackSuite

	originalStack func(*logrus.Logger) device.NativeStack
}

func (s *CommandTestSuite) SetupTest() {
	s.StackSuite.SetupTest()

	s.originalStack = newStack
	stack := s.Stack
	newStack = func(*logrus.Logger) device.NativeStack { return stack }

	resetCommandFlags()
}

func (s *CommandTestSuite) TearDownTest() {
	newStack = s.originalStack
}

// resetCommandFlags re-creates every subcommand's flags so no value or
// inherited flag leaks between tests.
func resetCommandFlags() {
	statusWatch = false
	devicesPaired = false
	scanServices = nil
	connectNotify = ""

	for _, cmd := range []*cobra.Command{statusCmd, scanCmd, connectCmd, devicesCmd, powerCmd, settingsCmd} {
		cmd.ResetFlags()
		cmd.SilenceUsage = false
	}
	initStatusFlags()
	initScanFlags()
	initConnectFlags()
	initDevicesFlags()
}

// newTestRoot creates a root command carrying the global flags.
func newTestRoot(sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "bleplug", SilenceErrors: true}
	root.PersistentFlags().String("log-level", "", "")
	root.PersistentFlags().Bool("verbose", false, "")
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(sub)
	return root
}

// syncBuffer is a bytes.Buffer safe for concurrent writes and reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ExecuteCommand runs sub with args and returns its output and error.
func (s *CommandTestSuite) ExecuteCommand(sub *cobra.Command, args ...string) (string, error) {
	out := &syncBuffer{}
	err := s.execute(s.Context(), out, sub, args...)
	return out.String(), err
}

// StartCommand runs sub in the background. wait blocks until it returns.
func (s *CommandTestSuite) StartCommand(ctx context.Context, sub *cobra.Command, args ...string) (out *syncBuffer, wait func() error) {
	out = &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- s.execute(ctx, out, sub, args...) }()
	return out, func() error {
		return testutils.Receive(&s.StackSuite, done, "command MUST return")
	}
}

func (s *CommandTestSuite) execute(ctx context.Context, out *syncBuffer, sub *cobra.Command, args ...string) error {
	root := newTestRoot(sub)
	// cobra keeps the context of the previous run on the subcommand
	sub.SetContext(ctx)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{sub.Name()}, args...))
	return root.ExecuteContext(ctx)
}

// EventuallyContains waits until out contains substr.
func (s *CommandTestSuite) EventuallyContains(out *syncBuffer, substr, msg string) {
	s.T().Helper()
	s.Require().Eventually(func() bool {
		return strings.Contains(out.String(), substr)
	}, s.TestTimeout, tick, msg)
}
