//go:build test

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type AdapterCommandsTestSuite struct {
	CommandTestSuite
}

// linkPeer establishes a link to a peer outside of the CLI.
func (suite *AdapterCommandsTestSuite) linkPeer(address, name string) {
	suite.Stack.AddPeer(address, name)
	h, err := suite.Stack.DeviceFromAddress(context.Background(), address)
	suite.Require().NoError(err)
	_, err = h.DiscoverServices(context.Background(), device.CacheUncached)
	suite.Require().NoError(err)
}

func (suite *AdapterCommandsTestSuite) TestDevices_Connected() {
	suite.linkPeer(TestDeviceAddress1, "HRM")
	suite.Stack.AddPeer(TestDeviceAddress2, "idle")

	output, err := suite.ExecuteCommand(devicesCmd)
	suite.Require().NoError(err, "devices MUST succeed")

	testutils.NewTextAsserter(suite.T()).Assert(output, `
NAME  ADDRESS            ID
HRM   AA:BB:CC:DD:EE:01  00000000-0000-0000-0000-aabbccddee01
`)
}

func (suite *AdapterCommandsTestSuite) TestDevices_None() {
	output, err := suite.ExecuteCommand(devicesCmd)
	suite.Require().NoError(err)
	suite.Equal("No connected devices\n", output)
}

func (suite *AdapterCommandsTestSuite) TestDevices_Paired() {
	suite.Stack.WithPaired("11:22:33:44:55:66")

	output, err := suite.ExecuteCommand(devicesCmd, "--paired")
	suite.Require().NoError(err, "devices --paired MUST succeed")

	testutils.NewTextAsserter(suite.T()).Assert(output, `
NAME  ADDRESS            ID
-     11:22:33:44:55:66  00000000-0000-0000-0000-112233445566
`)
}

func (suite *AdapterCommandsTestSuite) TestDevices_PairedUnsupported() {
	suite.Stack.WithFindError(device.ErrUnsupported)

	_, err := suite.ExecuteCommand(devicesCmd, "--paired")
	suite.Require().ErrorIs(err, device.ErrUnsupported)
	suite.Contains(FormatUserError(err), "Not supported on this platform")
}

func (suite *AdapterCommandsTestSuite) TestPower() {
	// GOAL: Verify power switches the radio and reports the resulting status

	output, err := suite.ExecuteCommand(powerCmd, "off")
	suite.Require().NoError(err, "power off MUST succeed")
	suite.Equal("Status: PoweredOff\n", output)
	suite.Equal(device.RadioOff, suite.Stack.Adapter().Power.State())

	output, err = suite.ExecuteCommand(powerCmd, "on")
	suite.Require().NoError(err, "power on MUST succeed")
	suite.Equal("Status: PoweredOn\n", output)
}

func (suite *AdapterCommandsTestSuite) TestPower_Failure() {
	suite.Stack.Adapter().Power.WithSetStateError(errors.New("operation not permitted"))

	_, err := suite.ExecuteCommand(powerCmd, "off")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to set radio off")
}

func (suite *AdapterCommandsTestSuite) TestPower_InvalidArgument() {
	_, err := suite.ExecuteCommand(powerCmd, "maybe")
	suite.Require().Error(err, "only on and off MUST be accepted")
	suite.Equal(device.RadioOn, suite.Stack.Adapter().Power.State())
}

func (suite *AdapterCommandsTestSuite) TestSettings() {
	output, err := suite.ExecuteCommand(settingsCmd)
	suite.Require().NoError(err)
	suite.Equal("Opened Bluetooth settings\n", output)
	suite.Equal(1, suite.Stack.SettingsOpened())
}

func (suite *AdapterCommandsTestSuite) TestSettings_Unsupported() {
	suite.Stack.WithSettingsError(device.ErrUnsupported)

	_, err := suite.ExecuteCommand(settingsCmd)
	suite.Require().ErrorIs(err, device.ErrUnsupported)
	suite.Zero(suite.Stack.SettingsOpened())
}

func TestAdapterCommandsTestSuite(t *testing.T) {
	suite.Run(t, new(AdapterCommandsTestSuite))
}
