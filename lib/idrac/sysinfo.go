// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package idrac

import (
	"context"
	"errors"
	"fmt"

	"github.com/acmlab/bmcfleet/lib/redfish"
)

// SystemInfo describes the server behind an iDRAC, in the shape a
// machines-file entry needs.
type SystemInfo struct {
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Model        string `json:"model" yaml:"model"`
	// ServiceTag is Dell's asset tag (Oem.Dell.DellSystem.NodeID).
	ServiceTag      string        `json:"service_tag,omitempty" yaml:"service_tag,omitempty"`
	SerialNumber    string        `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	HostName        string        `json:"host_name,omitempty" yaml:"host_name,omitempty"`
	BIOSVersion     string        `json:"bios_version,omitempty" yaml:"bios_version,omitempty"`
	FirmwareVersion string        `json:"idrac_firmware,omitempty" yaml:"idrac_firmware,omitempty"`
	PowerState      string        `json:"power_state" yaml:"power_state"`
	Ports           []NetworkPort `json:"ports" yaml:"ports"`
}

// NetworkPort is one Ethernet function of a network adapter.
type NetworkPort struct {
	Adapter      string `json:"adapter" yaml:"adapter"`
	Function     string `json:"function" yaml:"function"`
	Vendor       string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Product      string `json:"product,omitempty" yaml:"product,omitempty"`
	PCIVendorID  string `json:"pci_vendor_id,omitempty" yaml:"pci_vendor_id,omitempty"`
	PCIDeviceID  string `json:"pci_device_id,omitempty" yaml:"pci_device_id,omitempty"`
	PhysicalPort string `json:"physical_port,omitempty" yaml:"physical_port,omitempty"`
	// MACAddress is empty for disabled ports.
	MACAddress string `json:"mac_address,omitempty" yaml:"mac_address,omitempty"`
}

// PCIVendorName maps a PCI vendor id to a name for the NIC vendors
// seen in PowerEdge servers.
func PCIVendorName(vendorID string) string {
	switch vendorID {
	case "14e4":
		return "Broadcom"
	case "8086":
		return "Intel"
	case "15b3":
		return "Mellanox"
	case "1077":
		return "QLogic"
	case "":
		return ""
	default:
		return fmt.Sprintf("0x%s", vendorID)
	}
}

// SystemInfo gathers the system summary and its Ethernet ports. A
// chassis without a network adapter collection yields no ports rather
// than an error.
func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	system, err := c.System(ctx)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("idrac: reading system: %w", err)
	}
	info := SystemInfo{
		Manufacturer: system.String("Manufacturer"),
		Model:        system.String("Model"),
		ServiceTag:   system.Object("Oem", "Dell", "DellSystem").String("NodeID"),
		SerialNumber: system.String("SerialNumber"),
		HostName:     system.String("HostName"),
		BIOSVersion:  system.String("BiosVersion"),
		PowerState:   system.String("PowerState"),
		Ports:        []NetworkPort{},
	}
	if manager, err := c.SystemManager(ctx); err == nil {
		info.FirmwareVersion = manager.String("FirmwareVersion")
	}

	chassisLinks, _ := system.Object("Links")["Chassis"].([]any)
	if len(chassisLinks) == 0 {
		return info, nil
	}
	chassisID := redfish.Resource(asObject(chassisLinks[0])).ID()
	chassis, err := c.Get(ctx, chassisID)
	if errors.Is(err, redfish.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return SystemInfo{}, fmt.Errorf("idrac: reading chassis: %w", err)
	}
	adaptersID := chassis.Link("NetworkAdapters")
	if adaptersID == "" {
		return info, nil
	}
	adapters, err := c.ListMembers(ctx, adaptersID)
	if errors.Is(err, redfish.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return SystemInfo{}, fmt.Errorf("idrac: listing network adapters: %w", err)
	}

	for _, adapter := range adapters {
		functions, err := c.ListMembers(ctx, adapter.Link("NetworkDeviceFunctions"))
		if err != nil {
			return SystemInfo{}, fmt.Errorf("idrac: adapter %s: %w", adapter.ID(), err)
		}
		for _, function := range functions {
			if function.String("NetDevFuncType") != "Ethernet" {
				continue
			}
			port, err := c.networkPort(ctx, adapter, function)
			if err != nil {
				return SystemInfo{}, err
			}
			info.Ports = append(info.Ports, port)
		}
	}
	return info, nil
}

func (c *Client) networkPort(ctx context.Context, adapter, function redfish.Resource) (NetworkPort, error) {
	nic := function.Object("Oem", "Dell", "DellNIC")
	port := NetworkPort{
		Adapter:     adapter.String("Id"),
		Function:    function.String("Id"),
		Product:     nic.String("ProductName"),
		Vendor:      nic.String("VendorName"),
		PCIVendorID: nic.String("PCIVendorID"),
		PCIDeviceID: nic.String("PCIDeviceID"),
		MACAddress:  function.Object("Ethernet").String("MACAddress"),
	}
	if port.Vendor == "" {
		port.Vendor = PCIVendorName(port.PCIVendorID)
	}
	if assignment := function.Link("Links", "PhysicalPortAssignment"); assignment != "" {
		physical, err := c.Get(ctx, assignment)
		if err != nil {
			return NetworkPort{}, fmt.Errorf("idrac: port of %s: %w", function.ID(), err)
		}
		port.PhysicalPort = physical.String("PhysicalPortNumber")
	}
	return port, nil
}

func asObject(value any) map[string]any {
	object, _ := value.(map[string]any)
	return object
}
