// Package device defines the portable Bluetooth Low Energy (BLE) model shared by
// the adapter layer and the native stack implementations.
//
// It contains:
//   - Portable enums (AdapterStatus, ConnectionStatus, AdapterFeatures)
//   - The native stack contract (NativeStack, Radio, NativeDevice, ...)
//     that every platform backend implements
//   - Advertisement payload parsing into AdvertisementData
//   - The error taxonomy (precondition, resolution and connection errors)
//   - Device identity helpers mapping radio addresses to UUIDs
package device
