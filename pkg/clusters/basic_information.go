package clusters

import (
	"fmt"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

// BasicInformationID is the BasicInformation cluster ID.
const BasicInformationID uint32 = 0x0028

// BasicInformation attribute IDs.
const (
	AttrDataModelRevision     uint16 = 0x0000
	AttrVendorName            uint16 = 0x0001
	AttrVendorID              uint16 = 0x0002
	AttrProductName           uint16 = 0x0003
	AttrProductID             uint16 = 0x0004
	AttrNodeLabel             uint16 = 0x0005
	AttrHardwareVersion       uint16 = 0x0007
	AttrHardwareVersionString uint16 = 0x0008
	AttrSoftwareVersion       uint16 = 0x0009
	AttrSoftwareVersionString uint16 = 0x000A
	AttrSerialNumber          uint16 = 0x000F
)

// DataModelRevision is the reported data model revision.
const DataModelRevision uint16 = 17

// Test vendor and product IDs used when none are configured.
const (
	TestVendorID  uint16 = 0xFFF1
	TestProductID uint16 = 0x8000
)

func fixedRV(id uint16, name string) model.Attribute {
	return model.Attribute{ID: id, Name: name, Access: model.AccessRV, Quality: model.QualityFixed}
}

// BasicInformationCluster is the BasicInformation descriptor.
var BasicInformationCluster = &model.Cluster{
	ID:   BasicInformationID,
	Name: "BasicInformation",
	Attributes: []model.Attribute{
		model.FeatureMapAttribute,
		model.AttributeListAttribute,
		fixedRV(AttrDataModelRevision, "DataModelRevision"),
		fixedRV(AttrVendorName, "VendorName"),
		fixedRV(AttrVendorID, "VendorID"),
		fixedRV(AttrProductName, "ProductName"),
		fixedRV(AttrProductID, "ProductID"),
		{ID: AttrNodeLabel, Name: "NodeLabel", Access: model.AccessRV, Quality: model.QualityPersistent},
		fixedRV(AttrHardwareVersion, "HardwareVersion"),
		fixedRV(AttrHardwareVersionString, "HardwareVersionString"),
		fixedRV(AttrSoftwareVersion, "SoftwareVersion"),
		fixedRV(AttrSoftwareVersionString, "SoftwareVersionString"),
		fixedRV(AttrSerialNumber, "SerialNumber"),
	},
}

// BasicInfoConfig is the identity reported by BasicInformation.
type BasicInfoConfig struct {
	VendorID              uint16 `yaml:"vendor_id"`
	ProductID             uint16 `yaml:"product_id"`
	HardwareVersion       uint16 `yaml:"hardware_version"`
	SoftwareVersion       uint32 `yaml:"software_version"`
	SoftwareVersionString string `yaml:"software_version_string"`
	SerialNumber          string `yaml:"serial_number"`
	DeviceName            string `yaml:"device_name"`
	ProductName           string `yaml:"product_name"`
	VendorName            string `yaml:"vendor_name"`
}

// DefaultBasicInfoConfig returns the identity of the reference light.
func DefaultBasicInfoConfig() BasicInfoConfig {
	return BasicInfoConfig{
		VendorID:              TestVendorID,
		ProductID:             TestProductID,
		HardwareVersion:       2,
		SoftwareVersion:       1,
		SoftwareVersionString: "1",
		SerialNumber:          "aabbccdd",
		DeviceName:            "MyLight",
		ProductName:           "ACME Light",
		VendorName:            "ACME",
	}
}

// BasicInformation reports the node identity.
type BasicInformation struct {
	cfg     BasicInfoConfig
	dataver *model.Dataver
}

// NewBasicInformation creates the instance for the root endpoint.
func NewBasicInformation(cfg BasicInfoConfig, dv *model.Dataver) *BasicInformation {
	return &BasicInformation{cfg: cfg, dataver: dv}
}

// Cluster returns the static descriptor.
func (b *BasicInformation) Cluster() *model.Cluster { return BasicInformationCluster }

// Config returns the reported identity.
func (b *BasicInformation) Config() BasicInfoConfig { return b.cfg }

// Read encodes one attribute of the cluster.
func (b *BasicInformation) Read(_ *model.Exchange, attr *model.AttrDetails, enc *model.AttrEncoder) error {
	w, err := enc.WithDataver(b.dataver.Get())
	if err != nil || w == nil {
		return err
	}

	if attr.IsSystem() {
		return BasicInformationCluster.ReadSystem(attr.AttrID, w)
	}

	switch attr.AttrID {
	case AttrDataModelRevision:
		return w.Encode(DataModelRevision)
	case AttrVendorName:
		return w.Encode(b.cfg.VendorName)
	case AttrVendorID:
		return w.Encode(b.cfg.VendorID)
	case AttrProductName:
		return w.Encode(b.cfg.ProductName)
	case AttrProductID:
		return w.Encode(b.cfg.ProductID)
	case AttrNodeLabel:
		return w.Encode(b.cfg.DeviceName)
	case AttrHardwareVersion:
		return w.Encode(b.cfg.HardwareVersion)
	case AttrHardwareVersionString:
		return w.Encode(fmt.Sprintf("v%d", b.cfg.HardwareVersion))
	case AttrSoftwareVersion:
		return w.Encode(b.cfg.SoftwareVersion)
	case AttrSoftwareVersionString:
		return w.Encode(b.cfg.SoftwareVersionString)
	case AttrSerialNumber:
		return w.Encode(b.cfg.SerialNumber)
	default:
		return fmt.Errorf("%w: 0x%04X", model.ErrUnsupportedAttribute, attr.AttrID)
	}
}

var _ model.Handler = (*BasicInformation)(nil)
