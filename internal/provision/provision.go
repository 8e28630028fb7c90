// Package provision pushes WiFi credentials and device settings to an Ice
// Pulse sensor over its serial console.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/device-tools/internal/config"
	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/session"
)

// ErrNotResponding is returned when the device does not answer ping.
var ErrNotResponding = errors.New("device not responding to commands")

// CommandError reports a configuration command the device rejected.
type CommandError struct {
	Command  string
	Response string
}

func (e *CommandError) Error() string {
	if e.Response == "" {
		return fmt.Sprintf("%s failed: no response", e.Command)
	}
	return fmt.Sprintf("%s failed: %s", e.Command, e.Response)
}

// Provisioner issues provisioning commands over an open session.
type Provisioner struct {
	s *session.Session
}

// New returns a Provisioner using s. The caller owns the session.
func New(s *session.Session) *Provisioner {
	return &Provisioner{s: s}
}

// TestConnection sends ping and expects pong, ignoring case.
func (p *Provisioner) TestConnection() (protocol.Outcome, error) {
	resp, err := p.s.Send(protocol.CmdPing)
	if err != nil {
		return protocol.Fail(err.Error()), err
	}
	if !protocol.ParsePong(resp) {
		return protocol.Fail(resp), nil
	}
	return protocol.Pass(resp), nil
}

// DeviceInfo queries device_info. Fields the device does not report are
// left as protocol.Unknown.
func (p *Provisioner) DeviceInfo() (protocol.DeviceInfo, error) {
	resp, err := p.s.Send(protocol.CmdDeviceInfo)
	if err != nil {
		return protocol.DefaultDeviceInfo(), err
	}
	return protocol.ParseDeviceInfo(resp), nil
}

// ConfigureWiFi sends the station credentials. The firmware splits its
// arguments on whitespace, so credentials containing any are rejected
// without writing to the device.
func (p *Provisioner) ConfigureWiFi(ssid, password string) (protocol.Outcome, error) {
	if strings.ContainsAny(ssid+password, " \t\r\n") {
		return protocol.Fail("SSID and password must not contain whitespace"), nil
	}
	resp, err := p.s.Send(fmt.Sprintf("%s %s %s", protocol.CmdWiFiConfig, ssid, password))
	if err != nil {
		return protocol.Fail(err.Error()), err
	}
	return protocol.ParseStatus(resp).Outcome(), nil
}

// ConfigureDevice sends cfg as single-line JSON.
func (p *Provisioner) ConfigureDevice(cfg config.DeviceConfig) (protocol.Outcome, error) {
	payload, err := cfg.Compact()
	if err != nil {
		return protocol.Fail(err.Error()), err
	}
	resp, err := p.s.Send(protocol.CmdDeviceConfig + " " + payload)
	if err != nil {
		return protocol.Fail(err.Error()), err
	}
	return protocol.ParseStatus(resp).Outcome(), nil
}

// Options selects what Run configures. Empty fields are skipped.
type Options struct {
	WiFiSSID     string
	WiFiPassword string
	DeviceID     string
	APIEndpoint  string
	// ConfigFile is a JSON object merged over DeviceID and APIEndpoint.
	ConfigFile string
}

// Step is one completed provisioning command.
type Step struct {
	Name    string
	Outcome protocol.Outcome
}

// Result summarises a provisioning run.
type Result struct {
	Info  protocol.DeviceInfo
	Steps []Step
}

// DeviceConfig builds the device_config payload from opts. The config file,
// when given, wins over the individual flags.
func (o Options) DeviceConfig() (config.DeviceConfig, error) {
	cfg := config.DeviceConfig{}
	if o.DeviceID != "" {
		cfg["device_id"] = o.DeviceID
	}
	if o.APIEndpoint != "" {
		cfg["api_endpoint"] = o.APIEndpoint
	}
	if o.ConfigFile != "" {
		fileCfg, err := config.LoadDeviceConfig(o.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
		cfg.Merge(fileCfg)
	}
	return cfg, nil
}

// Run connects, checks the device answers, prints its identity and applies
// the requested configuration. The session is closed on every path. Any
// returned error means provisioning did not complete.
func (p *Provisioner) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	// Load the config file first so a bad file fails before the device is
	// reset by opening the port.
	devCfg, err := opts.DeviceConfig()
	if err != nil {
		monitoring.Statusf("❌ %v", err)
		return res, err
	}

	if err := p.s.Connect(); err != nil {
		monitoring.Statusf("❌ Failed to connect: %v", err)
		return res, err
	}
	defer func() {
		p.s.Close()
		monitoring.Statusf("🔌 Disconnected")
	}()
	monitoring.Statusf("✅ Connected")

	monitoring.Statusf("🔍 Testing device connection")
	out, err := p.TestConnection()
	res.Steps = append(res.Steps, Step{Name: protocol.CmdPing, Outcome: out})
	if err != nil {
		monitoring.Statusf("❌ Connection test failed: %v", err)
		return res, err
	}
	if !out.OK {
		monitoring.Statusf("❌ Device not responding")
		return res, ErrNotResponding
	}
	monitoring.Statusf("✅ Device responding")

	if err := ctx.Err(); err != nil {
		return res, err
	}

	info, err := p.DeviceInfo()
	if err != nil {
		monitoring.Statusf("❌ Error getting device info: %v", err)
		return res, err
	}
	res.Info = info
	monitoring.Statusf("📱 Device Info:")
	for _, f := range info.Fields() {
		monitoring.Statusf("  %s: %s", f.Name, f.Value)
	}

	if opts.WiFiSSID != "" && opts.WiFiPassword != "" {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		monitoring.Statusf("📶 Configuring WiFi: %s", opts.WiFiSSID)
		out, err := p.ConfigureWiFi(opts.WiFiSSID, opts.WiFiPassword)
		res.Steps = append(res.Steps, Step{Name: protocol.CmdWiFiConfig, Outcome: out})
		if err != nil {
			monitoring.Statusf("❌ Error configuring WiFi: %v", err)
			return res, err
		}
		if !out.OK {
			monitoring.Statusf("❌ WiFi configuration failed: %s", out.Detail)
			return res, &CommandError{Command: protocol.CmdWiFiConfig, Response: out.Detail}
		}
		monitoring.Statusf("✅ WiFi configured successfully")
	}

	if len(devCfg) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		monitoring.Statusf("⚙️ Configuring device settings")
		out, err := p.ConfigureDevice(devCfg)
		res.Steps = append(res.Steps, Step{Name: protocol.CmdDeviceConfig, Outcome: out})
		if err != nil {
			monitoring.Statusf("❌ Error configuring device: %v", err)
			return res, err
		}
		if !out.OK {
			monitoring.Statusf("❌ Device configuration failed: %s", out.Detail)
			return res, &CommandError{Command: protocol.CmdDeviceConfig, Response: out.Detail}
		}
		monitoring.Statusf("✅ Device configured successfully")
	}

	monitoring.Statusf("🎉 Provisioning completed successfully!")
	return res, nil
}
