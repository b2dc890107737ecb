package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodeInfo() *NodeInfo {
	return &NodeInfo{
		VendorID:        0xFFF1,
		ProductID:       0x8000,
		SerialNumber:    "aabbccdd",
		DeviceName:      "MyLight",
		SoftwareVersion: "1",
		DeviceTypes:     []uint16{0x0100, 0x0302, 0x0307},
		EndpointCount:   4,
	}
}

func TestEncodeTXT(t *testing.T) {
	txt := EncodeTXT(testNodeInfo())

	assert.Equal(t, "fff1:8000", txt[TXTKeyVendorProd])
	assert.Equal(t, "aabbccdd", txt[TXTKeySerial])
	assert.Equal(t, "4", txt[TXTKeyEndpoints])
	assert.Equal(t, "MyLight", txt[TXTKeyDeviceName])
	assert.Equal(t, "1", txt[TXTKeyFirmware])
	assert.Equal(t, "100,302,307", txt[TXTKeyDeviceTypes])
}

func TestEncodeTXTOmitsOptional(t *testing.T) {
	txt := EncodeTXT(&NodeInfo{VendorID: 1, ProductID: 2, SerialNumber: "x", EndpointCount: 1})

	assert.Len(t, txt, 3)
	assert.NotContains(t, txt, TXTKeyDeviceName)
	assert.NotContains(t, txt, TXTKeyDeviceTypes)
}

func TestDecodeTXTRoundTrip(t *testing.T) {
	info := testNodeInfo()

	strs := TXTRecordsToStrings(EncodeTXT(info))
	got, err := DecodeTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestDecodeTXTErrors(t *testing.T) {
	valid := func() TXTRecordMap { return EncodeTXT(testNodeInfo()) }

	tests := []struct {
		name   string
		mutate func(TXTRecordMap)
		want   error
	}{
		{"missing VP", func(m TXTRecordMap) { delete(m, TXTKeyVendorProd) }, ErrMissingRequired},
		{"missing SN", func(m TXTRecordMap) { delete(m, TXTKeySerial) }, ErrMissingRequired},
		{"missing EP", func(m TXTRecordMap) { delete(m, TXTKeyEndpoints) }, ErrMissingRequired},
		{"VP without colon", func(m TXTRecordMap) { m[TXTKeyVendorProd] = "fff18000" }, ErrInvalidTXTRecord},
		{"bad vendor", func(m TXTRecordMap) { m[TXTKeyVendorProd] = "zz:8000" }, ErrInvalidTXTRecord},
		{"EP out of range", func(m TXTRecordMap) { m[TXTKeyEndpoints] = "300" }, ErrInvalidTXTRecord},
		{"bad device type", func(m TXTRecordMap) { m[TXTKeyDeviceTypes] = "100,xyz" }, ErrInvalidTXTRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txt := valid()
			tt.mutate(txt)
			_, err := DecodeTXT(txt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTXTRecordStrings(t *testing.T) {
	strs := TXTRecordsToStrings(TXTRecordMap{"SN": "1", "EP": "4", "VP": "a:b"})
	assert.Equal(t, []string{"EP=4", "SN=1", "VP=a:b"}, strs)

	txt := StringsToTXTRecords([]string{"A=1", "B=x=y", "=skip", "C"})
	assert.Equal(t, TXTRecordMap{"A": "1", "B": "x=y", "C": ""}, txt)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "MyLight-aabbccdd", InstanceName(testNodeInfo()))
	assert.Equal(t, "mash-sensor-01", InstanceName(&NodeInfo{SerialNumber: "01"}))

	long := &NodeInfo{DeviceName: strings.Repeat("n", 70), SerialNumber: "s"}
	name := InstanceName(long)
	assert.Len(t, name, MaxInstanceNameLen)
	assert.NoError(t, ValidateInstanceName(name))
}

func TestValidateInstanceName(t *testing.T) {
	assert.NoError(t, ValidateInstanceName("ok"))
	assert.ErrorIs(t, ValidateInstanceName(""), ErrInstanceNameTooLong)
	assert.ErrorIs(t, ValidateInstanceName(strings.Repeat("a", 64)), ErrInstanceNameTooLong)
}

func TestValidateTXTSize(t *testing.T) {
	assert.NoError(t, ValidateTXTSize(EncodeTXT(testNodeInfo())))

	info := testNodeInfo()
	info.DeviceName = strings.Repeat("d", MaxTXTRecordSize)
	assert.ErrorIs(t, ValidateTXTSize(EncodeTXT(info)), ErrInvalidTXTRecord)
}

func TestAggregator(t *testing.T) {
	agg := newAggregator()

	first := &NodeService{InstanceName: "a", Addresses: []string{"10.0.0.1"}}
	assert.Same(t, first, agg.add(first))

	// Same instance on another interface merges addresses.
	again := &NodeService{InstanceName: "a", Addresses: []string{"10.0.0.1", "fe80::1"}}
	assert.Nil(t, agg.add(again))
	assert.Equal(t, []string{"10.0.0.1", "fe80::1"}, first.Addresses)

	assert.Nil(t, agg.add(nil))

	agg.remove("a", []string{"10.0.0.1"})
	assert.Equal(t, []string{"fe80::1"}, first.Addresses)

	agg.remove("a", []string{"fe80::1"})
	assert.Empty(t, agg.services)

	// Forgotten instance is reported again.
	assert.NotNil(t, agg.add(&NodeService{InstanceName: "a", Addresses: []string{"10.0.0.2"}}))

	agg.remove("unknown", []string{"10.0.0.2"})
	assert.Len(t, agg.services, 1)
}

func TestAdvertiserUpdateRequiresAdvertise(t *testing.T) {
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

	assert.ErrorIs(t, a.Update(testNodeInfo()), ErrNotAdvertising)
	assert.NoError(t, a.Stop())
	assert.NoError(t, a.Stop())
}

func TestAdvertiseRejectsOversizedTXT(t *testing.T) {
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

	info := testNodeInfo()
	info.DeviceName = strings.Repeat("d", MaxTXTRecordSize)
	assert.ErrorIs(t, a.Advertise(t.Context(), info), ErrInvalidTXTRecord)
}
