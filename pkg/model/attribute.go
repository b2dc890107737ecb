package model

import "strings"

// System attribute IDs (present on every cluster).
const (
	// AttrIDSystemBase is the start of the system attribute range (0xFFF0-0xFFFF).
	AttrIDSystemBase uint16 = 0xFFF0

	// AttrIDAcceptedCommandList is the list of accepted command IDs.
	AttrIDAcceptedCommandList uint16 = 0xFFF9

	// AttrIDAttributeList is the list of supported attribute IDs.
	AttrIDAttributeList uint16 = 0xFFFB

	// AttrIDFeatureMap is the cluster feature bitmap.
	AttrIDFeatureMap uint16 = 0xFFFC
)

// IsSystemAttribute reports whether id lies in the system attribute range.
func IsSystemAttribute(id uint16) bool {
	return id >= AttrIDSystemBase
}

// Access flags for attributes.
type Access uint8

const (
	// AccessRead allows reading the attribute.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the attribute.
	AccessWrite

	// AccessSubscribe allows subscribing to changes.
	AccessSubscribe

	// AccessRV is read and subscribe: read-only, reportable on change.
	AccessRV = AccessRead | AccessSubscribe
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// CanSubscribe returns true if subscribing is allowed.
func (a Access) CanSubscribe() bool { return a&AccessSubscribe != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if a.CanSubscribe() {
		s += "S"
	}
	if s == "" {
		return "-"
	}
	return s
}

// Quality flags describe how an attribute is encoded and stored.
type Quality uint8

const (
	// QualityNone carries no special quality.
	QualityNone Quality = 0

	// QualityNullable allows the value to be reported as null.
	QualityNullable Quality = 1 << (iota - 1)

	// QualityPersistent keeps the value across restarts.
	QualityPersistent

	// QualityFixed never changes for the lifetime of the node.
	QualityFixed

	// QualityScene is part of scene state.
	QualityScene

	// QualityReportable is reported even without a subscription request for it.
	QualityReportable

	// QualityList is an array value.
	QualityList
)

// Has reports whether all flags in f are set.
func (q Quality) Has(f Quality) bool { return q&f == f }

// String returns the quality flags in Matter notation.
func (q Quality) String() string {
	if q == QualityNone {
		return "-"
	}
	var b strings.Builder
	for _, f := range []struct {
		flag Quality
		code string
	}{
		{QualityNullable, "X"},
		{QualityPersistent, "N"},
		{QualityFixed, "F"},
		{QualityScene, "S"},
		{QualityReportable, "P"},
		{QualityList, "L"},
	} {
		if q&f.flag != 0 {
			b.WriteString(f.code)
		}
	}
	return b.String()
}

// Attribute is the static descriptor of one attribute.
type Attribute struct {
	ID      uint16
	Name    string
	Access  Access
	Quality Quality
}

// IsSystem reports whether the attribute is a system attribute.
func (a Attribute) IsSystem() bool {
	return IsSystemAttribute(a.ID)
}

// System attribute descriptors shared by all clusters.
var (
	FeatureMapAttribute = Attribute{
		ID: AttrIDFeatureMap, Name: "FeatureMap", Access: AccessRV, Quality: QualityFixed,
	}
	AttributeListAttribute = Attribute{
		ID: AttrIDAttributeList, Name: "AttributeList", Access: AccessRV, Quality: QualityFixed | QualityList,
	}
	AcceptedCommandListAttribute = Attribute{
		ID: AttrIDAcceptedCommandList, Name: "AcceptedCommandList", Access: AccessRV, Quality: QualityFixed | QualityList,
	}
)

// Command is the static descriptor of one cluster command.
type Command struct {
	ID   uint8
	Name string
}
