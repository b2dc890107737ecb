package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records of a node.
func EncodeTXT(info *NodeInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyVendorProd] = fmt.Sprintf("%04x:%04x", info.VendorID, info.ProductID)
	txt[TXTKeySerial] = info.SerialNumber
	txt[TXTKeyEndpoints] = strconv.FormatUint(uint64(info.EndpointCount), 10)

	// Optional fields
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}
	if info.SoftwareVersion != "" {
		txt[TXTKeyFirmware] = info.SoftwareVersion
	}
	if len(info.DeviceTypes) > 0 {
		txt[TXTKeyDeviceTypes] = encodeDeviceTypes(info.DeviceTypes)
	}

	return txt
}

// DecodeTXT parses the TXT records of a node.
func DecodeTXT(txt TXTRecordMap) (*NodeInfo, error) {
	info := &NodeInfo{}

	vp, ok := txt[TXTKeyVendorProd]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVendorProd)
	}
	vendor, product, found := strings.Cut(vp, ":")
	if !found {
		return nil, fmt.Errorf("%w: vendor:product %q", ErrInvalidTXTRecord, vp)
	}
	v, err := strconv.ParseUint(vendor, 16, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: vendor %q", ErrInvalidTXTRecord, vendor)
	}
	p, err := strconv.ParseUint(product, 16, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: product %q", ErrInvalidTXTRecord, product)
	}
	info.VendorID, info.ProductID = uint16(v), uint16(p)

	info.SerialNumber, ok = txt[TXTKeySerial]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySerial)
	}

	epStr, ok := txt[TXTKeyEndpoints]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyEndpoints)
	}
	ep, err := strconv.ParseUint(epStr, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint count %q", ErrInvalidTXTRecord, epStr)
	}
	info.EndpointCount = uint8(ep)

	// Optional fields
	info.DeviceName = txt[TXTKeyDeviceName]
	info.SoftwareVersion = txt[TXTKeyFirmware]
	info.DeviceTypes, err = parseDeviceTypes(txt[TXTKeyDeviceTypes])
	if err != nil {
		return nil, err
	}

	return info, nil
}

func encodeDeviceTypes(types []uint16) string {
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = strconv.FormatUint(uint64(t), 16)
	}
	return strings.Join(strs, ",")
}

func parseDeviceTypes(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	types := make([]uint16, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid device type %q", ErrInvalidTXTRecord, p)
		}
		types = append(types, uint16(n))
	}
	return types, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings,
// sorted by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// InstanceName builds the instance name of a node.
func InstanceName(info *NodeInfo) string {
	name := info.DeviceName
	if name == "" {
		name = "mash-sensor"
	}
	if info.SerialNumber != "" {
		name += "-" + info.SerialNumber
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// ValidateTXTSize checks the encoded size against MaxTXTRecordSize.
func ValidateTXTSize(txt TXTRecordMap) error {
	size := 0
	for k, v := range txt {
		size += 1 + len(k) + 1 + len(v)
	}
	if size > MaxTXTRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidTXTRecord, size)
	}
	return nil
}
