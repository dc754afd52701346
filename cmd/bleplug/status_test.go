//go:build test

package main

import (
	"context"
	"testing"

	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type StatusTestSuite struct {
	CommandTestSuite
}

func (suite *StatusTestSuite) TestStatus() {
	// GOAL: Verify status prints the resolved adapter, its power status and features
	//
	// TEST SCENARIO: dual-role powered adapter → all features listed

	output, err := suite.ExecuteCommand(statusCmd)
	suite.Require().NoError(err, "status MUST succeed")

	testutils.NewTextAsserter(suite.T()).Assert(output, `
Adapter:  fake0
Status:   PoweredOn
Features: scan, connect, gatt-server, advertise, set-state, open-settings
`)
}

func (suite *StatusTestSuite) TestStatus_CentralOnly() {
	suite.Stack.Adapter().Caps = device.Capabilities{LowEnergy: true, Central: true}
	suite.Stack.Adapter().Power = testutils.NewFakeRadio(device.RadioOff)

	output, err := suite.ExecuteCommand(statusCmd)
	suite.Require().NoError(err, "status MUST succeed")

	suite.Contains(output, "Status:   PoweredOff")
	suite.Contains(output, "Features: scan, connect, set-state, open-settings")
}

func (suite *StatusTestSuite) TestStatus_NoAdapter() {
	suite.Stack.WithoutAdapter()

	_, err := suite.ExecuteCommand(statusCmd)
	suite.Require().ErrorIs(err, device.ErrNoAdapter, "missing adapter MUST be reported")
	suite.Equal("No Bluetooth adapter found.", FormatUserError(err))
}

func (suite *StatusTestSuite) TestStatus_Watch() {
	// GOAL: Verify --watch prints every power change until interrupted
	//
	// TEST SCENARIO: start watching → radio turns off → interrupt → output lists each status once

	ctx, cancel := context.WithCancel(suite.Context())
	defer cancel()

	out, wait := suite.StartCommand(ctx, statusCmd, "--watch")
	suite.EventuallyContains(out, "Status: PoweredOn", "current status MUST be printed")

	radio := suite.Stack.Adapter().Power
	suite.Require().Eventually(func() bool { return radio.LiveHandlers() == 1 }, suite.TestTimeout, tick, "radio handler MUST be registered")
	radio.Fire(device.RadioOff)
	suite.EventuallyContains(out, "Status: PoweredOff", "power change MUST be printed")

	cancel()
	suite.Require().NoError(wait(), "interrupting --watch MUST not be an error")
	suite.Eventually(func() bool { return radio.LiveHandlers() == 0 }, suite.TestTimeout, tick,
		"radio handler MUST be removed after the watch ends")

	testutils.NewTextAsserter(suite.T()).Assert(out.String(), `
Status: Unknown
Status: PoweredOn
Status: PoweredOff
`)
}

func (suite *StatusTestSuite) TestInvalidLogLevel() {
	_, err := suite.ExecuteCommand(statusCmd, "--log-level=loud")
	suite.Require().Error(err, "invalid log level MUST be rejected")
	suite.Contains(err.Error(), "invalid log level: loud")
}

func TestStatusTestSuite(t *testing.T) {
	suite.Run(t, new(StatusTestSuite))
}
