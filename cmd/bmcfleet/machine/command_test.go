// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli/clitest"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
)

func TestRunInfo_YAML(t *testing.T) {
	first := redfishtest.NewServer(t, redfishtest.Config{})
	second := redfishtest.NewServer(t, redfishtest.Config{PowerState: "Off"})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r640-01": first, "r640-02": second})

	var buf bytes.Buffer
	if err := runInfo(context.Background(), &infoParams{}, []string{"r640-01", "r640-02"}, clitest.Logger(), &buf); err != nil {
		t.Fatalf("runInfo: %v", err)
	}

	var infos []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &infos); err != nil {
		t.Fatalf("decoding YAML output: %v\n%s", err, buf.String())
	}
	if len(infos) != 2 {
		t.Fatalf("got %d entries:\n%s", len(infos), buf.String())
	}
	if infos[0]["name"] != "r640-01" || infos[0]["model"] != "PowerEdge R640" {
		t.Errorf("first entry = %v", infos[0])
	}
	if infos[1]["power_state"] != "Off" {
		t.Errorf("second entry = %v", infos[1])
	}
}

func TestRunInfo_JSON(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r640-01": server})

	var buf bytes.Buffer
	params := &infoParams{JSONOutput: cli.JSONOutput{OutputJSON: true}}
	if err := runInfo(context.Background(), params, []string{"r640-01"}, clitest.Logger(), &buf); err != nil {
		t.Fatalf("runInfo: %v", err)
	}
	var infos []machineInfo
	if err := json.Unmarshal(buf.Bytes(), &infos); err != nil {
		t.Fatalf("decoding JSON output: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "r640-01" || infos[0].Model != "PowerEdge R640" {
		t.Errorf("infos = %+v", infos)
	}
}

func TestRunInfo_NotDell(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{Vendor: "Supermicro"})
	clitest.Inventory(t, map[string]*redfishtest.Server{"x12-01": server})

	var buf bytes.Buffer
	err := runInfo(context.Background(), &infoParams{}, []string{"x12-01"}, clitest.Logger(), &buf)
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output for a failed machine: %q", buf.String())
	}
}
