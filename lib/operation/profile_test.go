// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package operation_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/acmlab/bmcfleet/lib/operation"
)

const xmlProfile = `<SystemConfiguration Model="PowerEdge R650" ServiceTag="ABC1234">
  <Component FQDD="BIOS.Setup.1-1">
    <Attribute Name="BootMode">Uefi</Attribute>
  </Component>
  <Component FQDD="NIC.Integrated.1-1-1">
    <Attribute Name="LegacyBootProto">PXE</Attribute>
  </Component>
  <Component FQDD="iDRAC.Embedded.1">
    <Attribute Name="IPMILan.1#Enable">Enabled</Attribute>
  </Component>
</SystemConfiguration>
`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseProfile_JSONC(t *testing.T) {
	profile, err := operation.ParseProfile([]byte(jsonProfile), operation.ProfileJSON)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if profile.Format != operation.ProfileJSON {
		t.Errorf("Format: %s", profile.Format)
	}
	if profile.Components != 2 {
		t.Errorf("Components: got %d, want 2", profile.Components)
	}
	if strings.Contains(profile.Buffer, "//") || strings.Contains(profile.Buffer, "\n") {
		t.Errorf("buffer is not compact JSON: %q", profile.Buffer)
	}
	if !json.Valid([]byte(profile.Buffer)) {
		t.Errorf("buffer is not valid JSON: %q", profile.Buffer)
	}
}

func TestParseProfile_XML(t *testing.T) {
	profile, err := operation.ParseProfile([]byte(xmlProfile), operation.ProfileXML)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if profile.Components != 3 {
		t.Errorf("Components: got %d, want 3", profile.Components)
	}
	if profile.Buffer != xmlProfile {
		t.Error("XML buffer was modified")
	}
}

func TestParseProfile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format operation.ProfileFormat
	}{
		{"json without root", `{"Components": []}`, operation.ProfileJSON},
		{"json array", `[1, 2]`, operation.ProfileJSON},
		{"broken json", `{"SystemConfiguration": `, operation.ProfileJSON},
		{"xml wrong root", `<Config><Component/></Config>`, operation.ProfileXML},
		{"xml empty", ``, operation.ProfileXML},
		{"xml unclosed", `<SystemConfiguration><Component>`, operation.ProfileXML},
		{"unknown format", `{}`, operation.ProfileFormat("YAML")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := operation.ParseProfile([]byte(test.data), test.format); err == nil {
				t.Fatal("ParseProfile succeeded")
			}
		})
	}
}

func TestReadProfile_FormatFromExtension(t *testing.T) {
	xmlPath := writeFile(t, "r650.XML", xmlProfile)
	profile, err := operation.ReadProfile(xmlPath)
	if err != nil {
		t.Fatalf("ReadProfile(xml): %v", err)
	}
	if profile.Format != operation.ProfileXML {
		t.Errorf("xml file parsed as %s", profile.Format)
	}

	jsoncPath := writeFile(t, "r650.jsonc", jsonProfile)
	profile, err = operation.ReadProfile(jsoncPath)
	if err != nil {
		t.Fatalf("ReadProfile(jsonc): %v", err)
	}
	if profile.Format != operation.ProfileJSON {
		t.Errorf("jsonc file parsed as %s", profile.Format)
	}

	if _, err := operation.ReadProfile(writeFile(t, "mislabeled.json", xmlProfile)); err == nil {
		t.Error("XML content in a .json file was accepted")
	} else if !strings.Contains(err.Error(), "mislabeled.json") {
		t.Errorf("error does not name the file: %v", err)
	}
}

func TestReadFirmwareUpdate(t *testing.T) {
	path := writeFile(t, "bios.jsonc", `{
  // staged on the lab image server
  "ImageURI": "http://images.example/BIOS_1.9.2.exe",
  "TransferProtocol": "HTTP",
  "Targets": ["/redfish/v1/UpdateService/FirmwareInventory/BIOS"],
}`)
	update, err := operation.ReadFirmwareUpdate(path)
	if err != nil {
		t.Fatalf("ReadFirmwareUpdate: %v", err)
	}
	if update.ImageURI != "http://images.example/BIOS_1.9.2.exe" || update.TransferProtocol != "HTTP" {
		t.Errorf("update: %+v", update)
	}
	if !slices.Equal(update.Targets, []string{"/redfish/v1/UpdateService/FirmwareInventory/BIOS"}) {
		t.Errorf("Targets: %v", update.Targets)
	}

	if _, err := operation.ReadFirmwareUpdate(filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Error("missing file accepted")
	}
}
