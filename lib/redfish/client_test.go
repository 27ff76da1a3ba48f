// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/acmlab/bmcfleet/lib/clock"
	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func login(t *testing.T, username, password string) credential.Credential {
	t.Helper()
	cred, err := credential.New(username, password)
	if err != nil {
		t.Fatalf("credential.New: %v", err)
	}
	t.Cleanup(func() { cred.Close() })
	return cred
}

// connect opens a client against server as root/calvin with a fake
// clock, closing it when the test ends.
func connect(t *testing.T, server *redfishtest.Server, configure ...func(*redfish.Config)) (*redfish.Client, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	config := redfish.Config{
		Endpoint:   server.URL,
		Login:      login(t, "root", "calvin"),
		HTTPClient: server.Client(),
		Clock:      fake,
	}
	for _, apply := range configure {
		apply(&config)
	}
	client, err := redfish.Connect(context.Background(), config)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { client.Close(context.Background()) })
	return client, fake
}

func TestConnect_Handshake(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	client, _ := connect(t, server)

	requests := server.Requests()
	if len(requests) != 3 {
		t.Fatalf("handshake made %d requests, want 3: %+v", len(requests), requests)
	}
	want := []struct{ method, path string }{
		{http.MethodGet, "/redfish"},
		{http.MethodGet, redfishtest.RootPath},
		{http.MethodPost, redfishtest.SessionsPath},
	}
	for i, expected := range want {
		if requests[i].Method != expected.method || requests[i].Path != expected.path {
			t.Errorf("request %d: got %s %s, want %s %s", i, requests[i].Method, requests[i].Path, expected.method, expected.path)
		}
		if requests[i].Authenticated {
			t.Errorf("request %d (%s) carried a session token before login", i, expected.path)
		}
	}
	if client.Root() != redfishtest.RootPath {
		t.Errorf("Root: got %q, want %q", client.Root(), redfishtest.RootPath)
	}

	vendor, err := client.Vendor(context.Background())
	if err != nil || vendor != "Dell" {
		t.Errorf("Vendor: got %q, %v", vendor, err)
	}

	if _, err := client.Get(context.Background(), "Systems"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	last := server.Requests()[len(server.Requests())-1]
	if !last.Authenticated {
		t.Error("request after login was not authenticated")
	}

	client.Close(context.Background())
	if server.DeletedSessions() != 1 || server.OpenSessions() != 0 {
		t.Errorf("after Close: %d deleted, %d open", server.DeletedSessions(), server.OpenSessions())
	}
	// Second close is a no-op.
	client.Close(context.Background())
	if server.DeletedSessions() != 1 {
		t.Errorf("second Close deleted again: %d", server.DeletedSessions())
	}
}

func TestConnect_SessionServiceFallback(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{OmitSessionLink: true})
	connect(t, server)
	if server.Count(http.MethodPost, redfishtest.SessionsPath) != 1 {
		t.Fatal("expected login through the SessionService fallback path")
	}
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*redfishtest.Server)
		password string
		step     string
		status   int
	}{
		{
			name:     "bad credentials",
			password: "wrong",
			step:     "login",
			status:   http.StatusUnauthorized,
		},
		{
			name: "discovery",
			setup: func(server *redfishtest.Server) {
				server.FailNext(http.MethodGet, "/redfish", http.StatusInternalServerError, nil)
			},
			password: "calvin",
			step:     "discovery",
			status:   http.StatusInternalServerError,
		},
		{
			name: "service root",
			setup: func(server *redfishtest.Server) {
				server.FailNext(http.MethodGet, redfishtest.RootPath, http.StatusServiceUnavailable, nil)
			},
			password: "calvin",
			step:     "service root",
			status:   http.StatusServiceUnavailable,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := redfishtest.NewServer(t, redfishtest.Config{})
			if test.setup != nil {
				test.setup(server)
			}
			client, err := redfish.Connect(context.Background(), redfish.Config{
				Endpoint:   server.URL,
				Login:      login(t, "root", test.password),
				HTTPClient: server.Client(),
				Clock:      clock.Fake(epoch),
			})
			if client != nil {
				t.Fatal("Connect returned a client on failure")
			}
			var connectionErr *redfish.ConnectionError
			if !errors.As(err, &connectionErr) {
				t.Fatalf("expected *ConnectionError, got %T: %v", err, err)
			}
			if connectionErr.Step != test.step {
				t.Errorf("Step: got %q, want %q", connectionErr.Step, test.step)
			}
			var requestErr *redfish.RequestError
			if !errors.As(err, &requestErr) {
				t.Fatalf("expected wrapped *RequestError, got %v", err)
			}
			if requestErr.StatusCode != test.status {
				t.Errorf("StatusCode: got %d, want %d", requestErr.StatusCode, test.status)
			}
		})
	}
}

func TestConnect_RetriesNotReady(t *testing.T) {
	notReady := redfishtest.ErrorBody("IDRAC.2.8.SYS446", "Lifecycle Controller is busy")
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"discovery", http.MethodGet, "/redfish"},
		{"service root", http.MethodGet, redfishtest.RootPath},
		{"login", http.MethodPost, redfishtest.SessionsPath},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := redfishtest.NewServer(t, redfishtest.Config{})
			server.FailNext(test.method, test.path, http.StatusServiceUnavailable, notReady)

			_, fake := connect(t, server)
			if count := server.Count(test.method, test.path); count != 2 {
				t.Errorf("%s %s: got %d requests, want 2", test.method, test.path, count)
			}
			if waits := fake.WaitCount(redfish.DefaultRetryDelay); waits != 1 {
				t.Errorf("retry waits: got %d, want 1", waits)
			}
			if server.OpenSessions() != 1 {
				t.Errorf("open sessions: got %d, want 1", server.OpenSessions())
			}
		})
	}

	t.Run("second failure excludes", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.FailNext(http.MethodPost, redfishtest.SessionsPath, http.StatusServiceUnavailable, notReady)
		server.FailNext(http.MethodPost, redfishtest.SessionsPath, http.StatusServiceUnavailable, notReady)

		_, err := redfish.Connect(context.Background(), redfish.Config{
			Endpoint:   server.URL,
			Login:      login(t, "root", "calvin"),
			HTTPClient: server.Client(),
			Clock:      clock.Fake(epoch),
		})
		var connectionErr *redfish.ConnectionError
		if !errors.As(err, &connectionErr) || connectionErr.Step != "login" {
			t.Fatalf("expected login ConnectionError, got %v", err)
		}
		if redfish.MessageIDOf(err) != "IDRAC.2.8.SYS446" {
			t.Errorf("message id: got %q", redfish.MessageIDOf(err))
		}
		if count := server.Count(http.MethodPost, redfishtest.SessionsPath); count != 2 {
			t.Errorf("login attempts: got %d, want 2", count)
		}
	})
}

func TestConnect_RequiresEndpoint(t *testing.T) {
	_, err := redfish.Connect(context.Background(), redfish.Config{})
	var connectionErr *redfish.ConnectionError
	if !errors.As(err, &connectionErr) || connectionErr.Step != "configuration" {
		t.Fatalf("expected configuration ConnectionError, got %v", err)
	}
}

func TestGet_InvalidatedByWrites(t *testing.T) {
	const path = redfishtest.RootPath + "/Chassis/1"
	server := redfishtest.NewServer(t, redfishtest.Config{})
	server.SetResource(path, map[string]any{"Name": "before"})
	client, _ := connect(t, server)
	ctx := context.Background()

	first, err := client.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.String("Name") != "before" {
		t.Fatalf("Name: got %q", first.String("Name"))
	}
	if _, err := client.Get(ctx, "Chassis/1"); err != nil {
		t.Fatalf("Get relative: %v", err)
	}
	if count := server.Count(http.MethodGet, path); count != 1 {
		t.Fatalf("cached Get hit the BMC %d times, want 1", count)
	}

	if err := client.Update(ctx, path, map[string]any{"Name": "after"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, cached := client.Cache().Get(path); cached {
		t.Fatal("Update left a cached entry")
	}
	second, err := client.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get after Update: %v", err)
	}
	if second.String("Name") != "after" {
		t.Fatalf("Get after Update returned %q, want the post-write payload", second.String("Name"))
	}

	if err := client.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := client.Get(ctx, path); !errors.Is(err, redfish.ErrNotFound) {
		t.Fatalf("Get after Delete: expected ErrNotFound, got %v", err)
	}
}

func TestGetUncached_DropsCachedEntry(t *testing.T) {
	const path = redfishtest.RootPath + "/Chassis/1"
	server := redfishtest.NewServer(t, redfishtest.Config{})
	server.SetResource(path, map[string]any{"PowerState": "On"})
	client, _ := connect(t, server)
	ctx := context.Background()

	if _, err := client.Get(ctx, path); err != nil {
		t.Fatalf("Get: %v", err)
	}
	server.SetResource(path, map[string]any{"PowerState": "Off"})

	fresh, err := client.GetUncached(ctx, path)
	if err != nil {
		t.Fatalf("GetUncached: %v", err)
	}
	if fresh.String("PowerState") != "Off" {
		t.Errorf("GetUncached: got %q", fresh.String("PowerState"))
	}
	if _, cached := client.Cache().Get(path); cached {
		t.Error("GetUncached populated or kept the cache entry")
	}
}

func TestRequest_SuccessRules(t *testing.T) {
	const path = redfishtest.RootPath + "/Chassis/1"

	t.Run("200 with error body fails", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.SetResource(path, map[string]any{"Name": "chassis"})
		client, _ := connect(t, server)
		server.FailNext(http.MethodGet, path, http.StatusOK, redfishtest.ErrorBody("IDRAC.2.8.SYS403", "Unable to complete"))

		_, err := client.Get(context.Background(), path)
		var requestErr *redfish.RequestError
		if !errors.As(err, &requestErr) {
			t.Fatalf("expected *RequestError, got %v", err)
		}
		if requestErr.StatusCode != http.StatusOK || requestErr.MessageID != "IDRAC.2.8.SYS403" {
			t.Errorf("got status %d id %q", requestErr.StatusCode, requestErr.MessageID)
		}
		if requestErr.Message != "Unable to complete" {
			t.Errorf("Message: got %q", requestErr.Message)
		}
	})

	t.Run("other 2xx is not inspected", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		client, _ := connect(t, server)
		server.FailNext(http.MethodPatch, path, http.StatusAccepted, redfishtest.ErrorBody("IDRAC.2.8.SYS403", "ignored"))

		if err := client.Update(context.Background(), path, map[string]any{"Name": "x"}); err != nil {
			t.Fatalf("202 treated as failure: %v", err)
		}
	})

	t.Run("404 is ErrNotFound", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		client, _ := connect(t, server)
		_, err := client.Get(context.Background(), "Nope")
		if !errors.Is(err, redfish.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRequest_RetriesOnce(t *testing.T) {
	const path = redfishtest.RootPath + "/Chassis/1"
	notReady := redfishtest.ErrorBody("IDRAC.2.8.SYS446", "Lifecycle Controller is busy")

	t.Run("recovers on retry", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.SetResource(path, map[string]any{"Name": "chassis"})
		client, fake := connect(t, server)
		server.FailNext(http.MethodGet, path, http.StatusServiceUnavailable, notReady)

		resource, err := client.Get(context.Background(), path)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if resource.String("Name") != "chassis" {
			t.Errorf("Name: got %q", resource.String("Name"))
		}
		if count := server.Count(http.MethodGet, path); count != 2 {
			t.Errorf("requests: got %d, want 2", count)
		}
		if waits := fake.WaitCount(redfish.DefaultRetryDelay); waits != 1 {
			t.Errorf("retry waits: got %d, want 1", waits)
		}
	})

	t.Run("second failure surfaces", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.SetResource(path, map[string]any{"Name": "chassis"})
		client, fake := connect(t, server)
		server.FailNext(http.MethodPatch, path, http.StatusBadRequest, notReady)
		server.FailNext(http.MethodPatch, path, http.StatusBadRequest, notReady)

		err := client.Update(context.Background(), path, map[string]any{"Name": "x"})
		if redfish.MessageIDOf(err) != "IDRAC.2.8.SYS446" {
			t.Fatalf("expected SYS446 failure, got %v", err)
		}
		if count := server.Count(http.MethodPatch, path); count != 2 {
			t.Errorf("requests: got %d, want exactly 2", count)
		}
		if waits := len(fake.Waits()); waits != 1 {
			t.Errorf("waits: got %d, want 1", waits)
		}
	})

	t.Run("error code key", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.SetResource(path, map[string]any{"Name": "chassis"})
		client, _ := connect(t, server)
		server.FailNext(http.MethodGet, path, http.StatusServiceUnavailable, map[string]any{
			"error": map[string]any{"code": "Base.1.8.ServiceTemporarilyUnavailable", "message": "try later"},
		})

		if _, err := client.Get(context.Background(), path); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if count := server.Count(http.MethodGet, path); count != 2 {
			t.Errorf("requests: got %d, want 2", count)
		}
	})

	t.Run("unrecognized errors are not retried", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.SetResource(path, map[string]any{"Name": "chassis"})
		client, fake := connect(t, server)
		server.FailNext(http.MethodGet, path, http.StatusServiceUnavailable, "maintenance")

		if _, err := client.Get(context.Background(), path); err == nil {
			t.Fatal("expected failure")
		}
		if count := server.Count(http.MethodGet, path); count != 1 {
			t.Errorf("requests: got %d, want 1", count)
		}
		if len(fake.Waits()) != 0 {
			t.Errorf("unexpected waits: %v", fake.Waits())
		}
	})

	t.Run("configured delay and ids", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{})
		server.SetResource(path, map[string]any{"Name": "chassis"})
		client, fake := connect(t, server, func(config *redfish.Config) {
			config.RetryDelay = 2 * time.Second
			config.RetryableMessageIDs = []string{"IDRAC.2.8.LC068"}
		})
		server.FailNext(http.MethodGet, path, http.StatusBadRequest, redfishtest.ErrorBody("IDRAC.2.9.LC068", "busy"))

		if _, err := client.Get(context.Background(), path); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if fake.WaitCount(2*time.Second) != 1 {
			t.Errorf("waits: got %v, want one 2s wait", fake.Waits())
		}
	})
}

func TestRequest_HonoursCancellation(t *testing.T) {
	const path = redfishtest.RootPath + "/Chassis/1"
	server := redfishtest.NewServer(t, redfishtest.Config{})
	server.SetResource(path, map[string]any{"Name": "chassis"})
	client, err := redfish.Connect(context.Background(), redfish.Config{
		Endpoint:   server.URL,
		Login:      login(t, "root", "calvin"),
		HTTPClient: server.Client(),
		Clock:      clock.Real(),
		RetryDelay: time.Hour,
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close(context.Background())
	server.FailNext(http.MethodGet, path, http.StatusServiceUnavailable, redfishtest.ErrorBody("SYS518", "not ready"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.GetUncached(ctx, path); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestStartTask(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	client, _ := connect(t, server)
	ctx := context.Background()

	jobID, err := client.StartTask(ctx, redfishtest.SimpleUpdatePath, map[string]any{"ImageURI": "http://repo/fw.exe"})
	if err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	jobs := server.Jobs()
	if len(jobs) != 1 || jobID != jobs[0] {
		t.Fatalf("job id %q, server jobs %v", jobID, jobs)
	}

	task, err := client.GetTask(ctx, jobID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.String("TaskState") != "Completed" {
		t.Errorf("TaskState: got %q", task.String("TaskState"))
	}
	if _, cached := client.Cache().Get(jobID); cached {
		t.Error("GetTask cached a job resource")
	}

	// A submission that answers without Location is a RequestError.
	server.FailNext(http.MethodPost, redfishtest.SimpleUpdatePath, http.StatusAccepted, nil)
	_, err = client.StartTask(ctx, redfishtest.SimpleUpdatePath, map[string]any{})
	var requestErr *redfish.RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected *RequestError for missing Location, got %v", err)
	}
}

func TestPerformAction_EmptyBody(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{PowerState: "Off"})
	client, _ := connect(t, server)
	result, err := client.PerformAction(context.Background(), redfishtest.ResetPath, map[string]string{"ResetType": "On"})
	if err != nil {
		t.Fatalf("PerformAction: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result, got %v", result)
	}
	if server.PowerState() != "On" {
		t.Errorf("power state: got %q", server.PowerState())
	}
}

func TestCollections(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	client, _ := connect(t, server)
	ctx := context.Background()

	ids, err := client.ListMemberIDs(ctx, "Systems")
	if err != nil {
		t.Fatalf("ListMemberIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != redfishtest.SystemPath {
		t.Fatalf("ListMemberIDs: got %v", ids)
	}

	members, err := client.ListMembers(ctx, redfishtest.ManagersPath)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 1 || members[0].ID() != redfishtest.ManagerPath {
		t.Fatalf("ListMembers: got %v", members)
	}

	found, err := client.FindMemberByName(ctx, "Systems", "Other", "System")
	if err != nil {
		t.Fatalf("FindMemberByName: %v", err)
	}
	if found.ID() != redfishtest.SystemPath {
		t.Errorf("FindMemberByName: got %q", found.ID())
	}

	if _, err := client.FindMemberByName(ctx, "Systems", "Missing"); !errors.Is(err, redfish.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.ListMemberIDs(ctx, redfishtest.SystemPath); !errors.Is(err, redfish.ErrUnrecognized) {
		t.Errorf("non-collection: expected ErrUnrecognized, got %v", err)
	}
}

func TestSystemDiscovery(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	client, _ := connect(t, server)
	ctx := context.Background()

	system, err := client.System(ctx)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if system.ID() != redfishtest.SystemPath {
		t.Errorf("System: got %q", system.ID())
	}
	manager, err := client.SystemManager(ctx)
	if err != nil {
		t.Fatalf("SystemManager: %v", err)
	}
	if manager.String("Id") != redfishtest.ManagerID {
		t.Errorf("SystemManager: got %q", manager.String("Id"))
	}

	// The system id is learned once.
	if _, err := client.System(ctx); err != nil {
		t.Fatalf("System: %v", err)
	}
	if count := server.Count(http.MethodGet, redfishtest.SystemsPath); count != 1 {
		t.Errorf("Systems collection read %d times, want 1", count)
	}
}
