// Package ble is a portable Bluetooth Low Energy adapter API.
//
// An Adapter scans for advertisements, reports its power status as a shared
// stream and hands out Device values whose connection lifecycle is driven by
// a DeviceContext. Platform work is delegated to a device.NativeStack; the
// go-ble backend lives in internal/device/go-ble.
package ble
