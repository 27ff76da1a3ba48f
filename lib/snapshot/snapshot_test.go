// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/acmlab/bmcfleet/lib/clock"
	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
	"github.com/acmlab/bmcfleet/lib/snapshot"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func connect(t *testing.T, server *redfishtest.Server) *redfish.Client {
	t.Helper()
	login, err := credential.New("root", "calvin")
	if err != nil {
		t.Fatalf("credential.New: %v", err)
	}
	t.Cleanup(func() { login.Close() })
	client, err := redfish.Connect(context.Background(), redfish.Config{
		Endpoint:   server.URL,
		Login:      login,
		HTTPClient: server.Client(),
		Clock:      clock.Fake(epoch),
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { client.Close(context.Background()) })
	return client
}

func collect(t *testing.T, server *redfishtest.Server, options snapshot.Options) *snapshot.Snapshot {
	t.Helper()
	options.Clock = clock.Fake(epoch)
	snap, err := snapshot.Collect(context.Background(), "r650-07", connect(t, server), options)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return snap
}

func TestCollect_WalksTree(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	snap := collect(t, server, snapshot.Options{})

	if snap.Machine != "r650-07" || snap.Root != redfishtest.RootPath || !snap.Taken.Equal(epoch) {
		t.Errorf("header: %s %s %v", snap.Machine, snap.Root, snap.Taken)
	}
	for _, path := range []string{
		redfishtest.RootPath,
		redfishtest.SystemPath,
		redfishtest.ManagerPath,
		redfishtest.AccountsPath + "/2",
		redfishtest.UpdateServicePath,
		redfishtest.LicenseServicePath,
	} {
		if _, ok := snap.Resources[path]; !ok {
			t.Errorf("%s not captured", path)
		}
	}
	if snap.Resources[redfishtest.SystemPath].String("PowerState") != "On" {
		t.Errorf("system resource content lost: %v", snap.Resources[redfishtest.SystemPath])
	}
	if server.Count(http.MethodGet, redfishtest.SessionsPath) != 0 {
		t.Error("excluded sessions collection was read")
	}
	if snap.Truncated {
		t.Error("small tree reported as truncated")
	}

	for _, path := range snap.Paths() {
		if count := server.Count(http.MethodGet, path); count != 1 && path != redfishtest.RootPath {
			t.Errorf("%s read %d times", path, count)
		}
	}
}

func TestCollect_RecordsFailedReads(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	server.FailNext(http.MethodGet, redfishtest.ManagerPath, http.StatusInternalServerError,
		redfishtest.ErrorBody("Base.1.12.InternalError", "manager unavailable"))

	snap := collect(t, server, snapshot.Options{})
	message, ok := snap.Errors[redfishtest.ManagerPath]
	if !ok {
		t.Fatalf("manager failure not recorded: %v", snap.Errors)
	}
	if !strings.Contains(message, "status 500") {
		t.Errorf("error text: %s", message)
	}
	if _, ok := snap.Resources[redfishtest.SystemPath]; !ok {
		t.Error("walk stopped after a failed read")
	}
}

func TestCollect_StartFragmentsAndScope(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	server.SetResource("/redfish/v1/Chassis/1", map[string]any{
		"@odata.id": "/redfish/v1/Chassis/1",
		"Links": map[string]any{
			"Drives": []any{
				map[string]any{"@odata.id": "/redfish/v1/Chassis/1/Drives/0#/Status"},
				map[string]any{"@odata.id": "/redfish/v1/Chassis/1/Drives/0/"},
			},
			"Outside": map[string]any{"@odata.id": "/vendor/extension"},
		},
	})
	server.SetResource("/redfish/v1/Chassis/1/Drives/0", map[string]any{
		"@odata.id":     "/redfish/v1/Chassis/1/Drives/0",
		"CapacityBytes": 960197124096,
	})

	snap := collect(t, server, snapshot.Options{Start: "Chassis/1"})
	if snap.Root != "/redfish/v1/Chassis/1" {
		t.Errorf("Root: %s", snap.Root)
	}
	if len(snap.Resources) != 2 {
		t.Errorf("captured %v", snap.Paths())
	}
	if server.Count(http.MethodGet, "/redfish/v1/Chassis/1/Drives/0") != 1 {
		t.Error("fragment and trailing-slash links were not merged")
	}
	if server.Count(http.MethodGet, "/vendor/extension") != 0 {
		t.Error("link outside the service root was followed")
	}
}

func TestCollect_Truncates(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	snap := collect(t, server, snapshot.Options{MaxResources: 3})
	if !snap.Truncated {
		t.Error("Truncated not set")
	}
	if len(snap.Resources)+len(snap.Errors) != 3 {
		t.Errorf("read %d resources with a limit of 3", len(snap.Resources)+len(snap.Errors))
	}
}

func TestCollect_Cancelled(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	client := connect(t, server)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := snapshot.Collect(ctx, "r650-07", client, snapshot.Options{}); err == nil {
		t.Fatal("Collect succeeded with a cancelled context")
	}
}

func TestEncodeDecode(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	snap := collect(t, server, snapshot.Options{})

	var digests []string
	for _, tag := range []snapshot.CompressionTag{snapshot.CompressionZstd, snapshot.CompressionLZ4, snapshot.CompressionNone} {
		t.Run(tag.String(), func(t *testing.T) {
			data, sum, err := snap.Encode(tag)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, decodedSum, err := snapshot.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if decodedSum != sum {
				t.Errorf("digest changed: %s != %s", decodedSum.Short(), sum.Short())
			}
			if len(decoded.Resources) != len(snap.Resources) || !decoded.Taken.Equal(snap.Taken) {
				t.Errorf("decoded %d resources at %v", len(decoded.Resources), decoded.Taken)
			}
			if decoded.Resources[redfishtest.ManagerPath].ID() != redfishtest.ManagerPath {
				t.Errorf("manager resource: %v", decoded.Resources[redfishtest.ManagerPath])
			}
			digests = append(digests, sum.String())
		})
	}
	for _, other := range digests[1:] {
		if other != digests[0] {
			t.Errorf("digest depends on compression: %v", digests)
		}
	}
}

func TestEncode_CompressesRedfishJSON(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	snap := collect(t, server, snapshot.Options{})

	plain, _, err := snap.Encode(snapshot.CompressionNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	compressed, _, err := snap.Encode(snapshot.CompressionZstd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(compressed) >= len(plain) {
		t.Errorf("zstd container (%d bytes) not smaller than plain (%d bytes)", len(compressed), len(plain))
	}
}

func TestDecode_Rejects(t *testing.T) {
	snap := &snapshot.Snapshot{
		Machine:   "r650-07",
		Taken:     epoch,
		Resources: map[string]redfish.Resource{"/redfish/v1": {"@odata.id": "/redfish/v1"}},
	}
	data, _, err := snap.Encode(snapshot.CompressionNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tampered := bytes.Clone(data)
	tampered[len(tampered)-2] ^= 0xff
	if _, _, err := snapshot.Decode(tampered); !errors.Is(err, snapshot.ErrCorrupt) {
		t.Errorf("tampered payload: got %v, want ErrCorrupt", err)
	}
	if _, _, err := snapshot.Decode([]byte("PK\x03\x04 not a snapshot")); err == nil {
		t.Error("foreign file accepted")
	}
	if _, _, err := snapshot.Decode(data[:20]); err == nil {
		t.Error("truncated header accepted")
	}

	versioned := bytes.Clone(data)
	versioned[len("BMCSNAP")] = 9
	if _, _, err := snapshot.Decode(versioned); err == nil {
		t.Error("unknown version accepted")
	}
}

func TestWriteReadFile(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	snap := collect(t, server, snapshot.Options{})

	path := filepath.Join(t.TempDir(), "r650-07.snap")
	sum, err := snap.WriteFile(path, snapshot.CompressionLZ4)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, loadedSum, err := snapshot.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if loadedSum != sum || loaded.Machine != "r650-07" {
		t.Errorf("loaded %s with digest %s", loaded.Machine, loadedSum.Short())
	}
}

func TestParseCompressionTag(t *testing.T) {
	for name, want := range map[string]snapshot.CompressionTag{
		"":     snapshot.CompressionZstd,
		"zstd": snapshot.CompressionZstd,
		"lz4":  snapshot.CompressionLZ4,
		"none": snapshot.CompressionNone,
	} {
		if got, err := snapshot.ParseCompressionTag(name); err != nil || got != want {
			t.Errorf("ParseCompressionTag(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := snapshot.ParseCompressionTag("gzip"); err == nil {
		t.Error("gzip accepted")
	}
}
