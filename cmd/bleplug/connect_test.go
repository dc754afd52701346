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

const heartRateAddress = "AA:BB:CC:DD:EE:FF"

type ConnectTestSuite struct {
	CommandTestSuite

	peer      *testutils.FakePeer
	heartRate *testutils.FakeCharacteristic
}

func (suite *ConnectTestSuite) SetupTest() {
	suite.CommandTestSuite.SetupTest()
	suite.Stack.Strict()

	suite.heartRate = testutils.NewFakeCharacteristic("2A37")
	suite.peer = suite.Stack.AddPeer(heartRateAddress, "HRM").
		WithService("0000180d-0000-1000-8000-00805f9b34fb",
			suite.heartRate,
			testutils.NewFakeCharacteristic("2A39").WithIndicate(),
		)
}

// liveHandle returns the handle most recently resolved for the peer.
func (suite *ConnectTestSuite) liveHandle() *testutils.FakeDevice {
	handles := suite.Stack.Handles(heartRateAddress)
	suite.Require().NotEmpty(handles, "peer MUST have been resolved")
	return handles[len(handles)-1]
}

func (suite *ConnectTestSuite) TestConnect_ListsServices() {
	// GOAL: Verify connect discovers and prints the GATT tree, then disconnects
	//
	// TEST SCENARIO: connect by address → services printed → link released on exit

	output, err := suite.ExecuteCommand(connectCmd, heartRateAddress)
	suite.Require().NoError(err, "connect MUST succeed")

	testutils.NewTextAsserter(suite.T()).Assert(output, `
Connected to HRM (AA:BB:CC:DD:EE:FF)
Service 180d (Heart Rate)
  Characteristic 2a37 (Heart Rate Measurement) [notify]
  Characteristic 2a39 (Heart Rate Control Point) [notify,indicate]
`)
	suite.Equal(1, suite.peer.Connects(), "exactly one link MUST be established")
	suite.False(suite.peer.Connected(), "link MUST be released when the command exits")
}

func (suite *ConnectTestSuite) TestConnect_ByID() {
	output, err := suite.ExecuteCommand(connectCmd, "00000000-0000-0000-0000-aabbccddeeff")
	suite.Require().NoError(err, "connect by ID MUST succeed")
	suite.Contains(output, "Connected to HRM (AA:BB:CC:DD:EE:FF)")
}

func (suite *ConnectTestSuite) TestConnect_UnknownDevice() {
	_, err := suite.ExecuteCommand(connectCmd, "11:22:33:44:55:66")

	var nf *device.NotFoundError
	suite.Require().ErrorAs(err, &nf, "unknown device MUST be reported as not found")
	suite.Equal("device", nf.Resource)
}

func (suite *ConnectTestSuite) TestConnect_InvalidAddress() {
	_, err := suite.ExecuteCommand(connectCmd, "not-an-address")
	suite.Require().Error(err, "invalid address MUST be rejected")
	suite.Contains(err.Error(), "invalid device address")
}

func (suite *ConnectTestSuite) TestConnect_DiscoveryFailure() {
	suite.peer.WithDiscoverError(errors.New("gatt: discovery failed"))

	_, err := suite.ExecuteCommand(connectCmd, heartRateAddress)
	suite.Require().Error(err, "failed connect MUST be reported")
	suite.Contains(err.Error(), "discovery failed")
	suite.False(suite.peer.Connected())
}

func (suite *ConnectTestSuite) TestConnect_Notify() {
	// GOAL: Verify --notify subscribes and prints notifications until interrupted
	//
	// TEST SCENARIO: connect with --notify → peer notifies → hex printed → interrupt → subscription torn down

	ctx, cancel := context.WithCancel(suite.Context())
	defer cancel()

	out, wait := suite.StartCommand(ctx, connectCmd, heartRateAddress, "--notify", "180D:2A37")
	suite.Require().Eventually(func() bool { return suite.heartRate.Subscribes() == 1 }, suite.TestTimeout, tick,
		"characteristic MUST be subscribed")

	suite.heartRate.Emit([]byte{0x06, 0x48})
	suite.EventuallyContains(out, "2a37: 06 48", "notification MUST be printed as hex")

	cancel()
	suite.Require().NoError(wait(), "interrupt MUST not be an error")
	suite.Equal(1, suite.heartRate.Unsubscribes(), "notifications MUST be disabled on exit")
	suite.False(suite.peer.Connected(), "link MUST be released on exit")
}

func (suite *ConnectTestSuite) TestConnect_NotifyUnknownCharacteristic() {
	_, err := suite.ExecuteCommand(connectCmd, heartRateAddress, "--notify", "180d:2a99")

	var nf *device.NotFoundError
	suite.Require().ErrorAs(err, &nf)
	suite.Equal("characteristic", nf.Resource)
	suite.False(suite.peer.Connected(), "link MUST be released after a failed subscription")
}

func (suite *ConnectTestSuite) TestConnect_InvalidNotifyTarget() {
	_, err := suite.ExecuteCommand(connectCmd, heartRateAddress, "--notify", "2a37")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "expected SERVICE:CHAR")
	suite.Zero(suite.peer.Connects(), "nothing MUST be connected for invalid flags")
}

func (suite *ConnectTestSuite) TestConnect_WatchReportsLostLink() {
	// GOAL: Verify --watch prints transitions and fails when the peer drops the link

	out, wait := suite.StartCommand(suite.Context(), connectCmd, heartRateAddress, "--watch")
	suite.EventuallyContains(out, "Status: Connected", "connected status MUST be printed")

	suite.liveHandle().DropLink()

	suite.Require().ErrorIs(wait(), ErrConnectionLost, "dropped link MUST end the watch")
	testutils.NewTextAsserter(suite.T()).Assert(out.String(), `
Connected to HRM (AA:BB:CC:DD:EE:FF)
Service 180d (Heart Rate)
  Characteristic 2a37 (Heart Rate Measurement) [notify]
  Characteristic 2a39 (Heart Rate Control Point) [notify,indicate]
Status: Disconnected
Status: Connecting
Status: Connected
Status: Disconnected
`)
}

func TestConnectTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectTestSuite))
}
