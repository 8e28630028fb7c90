package serialport

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial device discovered on the host.
type PortInfo struct {
	Path         string `json:"path"`
	IsUSB        bool   `json:"is_usb"`
	VendorID     string `json:"vendor_id,omitempty"`
	ProductID    string `json:"product_id,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts returns the serial ports visible to the host, sorted by path.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Path:         d.Name,
			IsUSB:        d.IsUSB,
			VendorID:     strings.ToLower(d.VID),
			ProductID:    strings.ToLower(d.PID),
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
	return ports, nil
}

// Describe renders a single line summary of the port for console output.
func (p PortInfo) Describe() string {
	if !p.IsUSB {
		return p.Path
	}
	desc := fmt.Sprintf("%s (USB %s:%s)", p.Path, p.VendorID, p.ProductID)
	if p.Product != "" {
		desc += " " + p.Product
	}
	if p.SerialNumber != "" {
		desc += " serial=" + p.SerialNumber
	}
	return desc
}
