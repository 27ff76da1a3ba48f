// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package redfishtest provides an in-process fake BMC for tests.
//
// [NewServer] starts a TLS httptest server that speaks enough of the
// Redfish protocol for the client, the orchestrator, and the operations
// to run against it: discovery, the service root, sessions, one
// computer system with a reset action, one manager with the Dell
// configuration import action and license service, a 16-slot account
// table, an update service, and asynchronous jobs whose successive
// status documents are scripted by the test.
//
// Failures are scripted per method and path with [Server.FailNext];
// every request is recorded and can be inspected with
// [Server.Requests] and [Server.Count].
package redfishtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Resource paths served by the fake.
const (
	RootPath           = "/redfish/v1"
	SessionsPath       = RootPath + "/SessionService/Sessions"
	SystemsPath        = RootPath + "/Systems"
	SystemPath         = SystemsPath + "/System.Embedded.1"
	ResetPath          = SystemPath + "/Actions/ComputerSystem.Reset"
	ManagersPath       = RootPath + "/Managers"
	ChassisPath        = RootPath + "/Chassis/System.Embedded.1"
	ManagerID          = "iDRAC.Embedded.1"
	ManagerPath        = ManagersPath + "/" + ManagerID
	ImportPath         = ManagerPath + "/Actions/Oem/EID_674_Manager.ImportSystemConfiguration"
	JobsPath           = ManagerPath + "/Jobs"
	AccountServicePath = RootPath + "/AccountService"
	AccountsPath       = AccountServicePath + "/Accounts"
	UpdateServicePath  = RootPath + "/UpdateService"
	SimpleUpdatePath   = UpdateServicePath + "/Actions/UpdateService.SimpleUpdate"
	LicensesPath       = RootPath + "/Dell/Managers/" + ManagerID + "/DellLicenses"
	LicenseServicePath = RootPath + "/Dell/Managers/" + ManagerID + "/DellLicenseManagementService"
	ImportLicensePath  = LicenseServicePath + "/Actions/DellLicenseManagementService.ImportLicense"
	DeleteLicensePath  = LicenseServicePath + "/Actions/DellLicenseManagementService.DeleteLicense"
)

// Slots is the size of the fake's account table. Slot 1 is reserved.
const Slots = 16

// StandardResetTypes is the reset allow-list advertised by default.
var StandardResetTypes = []string{"On", "ForceOff", "GracefulShutdown", "GracefulRestart", "ForceRestart"}

// Config describes the fake BMC's initial state. Zero fields take the
// documented defaults.
type Config struct {
	// Vendor is reported in the service root. Default "Dell".
	Vendor string
	// Username and Password are the only accepted login. Default
	// "root" / "calvin".
	Username string
	Password string
	// PowerState is the initial system power state. Default "On".
	PowerState string
	// ResetTypes is the advertised reset allow-list. Nil means
	// StandardResetTypes; an empty non-nil slice advertises the
	// action without an allow-list.
	ResetTypes []string
	// OmitResetAction removes #ComputerSystem.Reset from the system.
	OmitResetAction bool
	// Accounts maps slot numbers (2..Slots) to user names. The login
	// user always occupies slot 2 unless Accounts says otherwise.
	Accounts map[int]string
	// OmitSessionLink leaves Links.Sessions out of the service root so
	// the client must fall back to the SessionService path.
	OmitSessionLink bool
}

// Request is one recorded HTTP request.
type Request struct {
	Method string
	Path   string
	// Body is the decoded JSON body, or nil.
	Body map[string]any
	// Authenticated reports whether the request carried the current
	// session token.
	Authenticated bool
}

type failure struct {
	status int
	body   any
}

type job struct {
	script []map[string]any
	polls  int
}

// Server is a fake BMC. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	config Config

	mu             sync.Mutex
	sessionSeq     int
	sessions       map[string]string // session path → token
	deletedSession int
	powerState     string
	resets         []string
	accounts       map[int]map[string]any
	resources      map[string]map[string]any
	jobs           map[string]*job
	jobSeq         int
	jobScript      []map[string]any
	licenses       map[string]map[string]any
	failures       map[string][]failure
	requests       []Request
}

// NewServer starts a fake BMC and registers its shutdown with t.
func NewServer(t testing.TB, config Config) *Server {
	t.Helper()
	if config.Vendor == "" {
		config.Vendor = "Dell"
	}
	if config.Username == "" {
		config.Username = "root"
	}
	if config.Password == "" {
		config.Password = "calvin"
	}
	if config.PowerState == "" {
		config.PowerState = "On"
	}
	if config.ResetTypes == nil {
		config.ResetTypes = StandardResetTypes
	}

	server := &Server{
		config:     config,
		sessions:   make(map[string]string),
		powerState: config.PowerState,
		accounts:   make(map[int]map[string]any),
		resources:  make(map[string]map[string]any),
		jobs:       make(map[string]*job),
		licenses:   make(map[string]map[string]any),
		failures:   make(map[string][]failure),
	}
	for slot := 1; slot <= Slots; slot++ {
		server.accounts[slot] = map[string]any{
			"UserName": "",
			"RoleId":   "None",
			"Enabled":  false,
			"Locked":   false,
		}
	}
	if config.Accounts == nil {
		config.Accounts = map[int]string{2: config.Username}
	}
	for slot, name := range config.Accounts {
		server.accounts[slot]["UserName"] = name
		server.accounts[slot]["RoleId"] = "Administrator"
		server.accounts[slot]["Enabled"] = true
	}

	server.Server = httptest.NewTLSServer(http.HandlerFunc(server.serveHTTP))
	t.Cleanup(server.Close)
	return server
}

// DMTFTask returns a standard Task document.
func DMTFTask(state, status string, percent int) map[string]any {
	return map[string]any{
		"@odata.type":     "#Task.v1_4_3.Task",
		"TaskState":       state,
		"TaskStatus":      status,
		"PercentComplete": percent,
	}
}

// DellJob returns a Dell Lifecycle Controller job document.
func DellJob(jobState, messageID string, percent int) map[string]any {
	return map[string]any{
		"@odata.type":     "#DellJob.v1_0_2.DellJob",
		"JobState":        jobState,
		"MessageId":       messageID,
		"Message":         "Job state " + jobState,
		"PercentComplete": percent,
	}
}

// ErrorBody returns a Redfish error document whose first extended-info
// entry carries messageID and message.
func ErrorBody(messageID, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    "Base.1.12.GeneralError",
			"message": "A general error has occurred. See ExtendedInfo for more information.",
			"@Message.ExtendedInfo": []any{
				map[string]any{"MessageId": messageID, "Message": message},
			},
		},
	}
}

// FailNext makes the next request matching method and path fail with
// status and the JSON-encoded body. Calls queue: each matching request
// consumes one failure.
func (s *Server) FailNext(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// QueueJob sets the status script for jobs created after this call.
// Each poll of a job returns the next document; the last repeats. With
// no call, jobs complete on the first poll.
func (s *Server) QueueJob(script ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobScript = script
}

// JobPolls returns how many times the job at path was read.
func (s *Server) JobPolls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[path]; ok {
		return j.polls
	}
	return 0
}

// Jobs returns the paths of every job created, sorted.
func (s *Server) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.jobs))
	for path := range s.jobs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// SetResource serves doc at path. GET returns it, PATCH merges into it,
// DELETE removes it.
func (s *Server) SetResource(path string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := copyMap(doc)
	copied["@odata.id"] = path
	s.resources[path] = copied
}

// Resource returns a copy of the extra resource at path.
func (s *Server) Resource(path string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.resources[path]
	return copyMap(doc), ok
}

// SetPowerState changes the system power state.
func (s *Server) SetPowerState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.powerState = state
}

// PowerState returns the system power state.
func (s *Server) PowerState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.powerState
}

// Resets returns the reset types posted to the system, in order.
func (s *Server) Resets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resets...)
}

// SetAccount fills a slot.
func (s *Server) SetAccount(slot int, name, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[slot]["UserName"] = name
	s.accounts[slot]["RoleId"] = role
	s.accounts[slot]["Enabled"] = name != ""
}

// Account returns a copy of the slot's account document.
func (s *Server) Account(slot int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.accounts[slot])
}

// AddLicense installs a license assigned to the manager.
func (s *Server) AddLicense(entitlementID, description, licenseType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLicenseLocked(entitlementID, description, licenseType)
}

func (s *Server) addLicenseLocked(entitlementID, description, licenseType string) {
	s.licenses[entitlementID] = map[string]any{
		"@odata.id":                    LicensesPath + "/" + entitlementID,
		"Id":                           entitlementID,
		"EntitlementID":                entitlementID,
		"AssignedDevices":              []any{ManagerID},
		"LicenseType":                  licenseType,
		"LicenseDescription":           []any{description},
		"EvalLicenseTimeRemainingDays": 0,
	}
}

// Licenses returns the installed entitlement ids, sorted.
func (s *Server) Licenses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.licenses))
	for id := range s.licenses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OpenSessions returns the number of sessions not yet deleted.
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DeletedSessions returns the number of sessions deleted by clients.
func (s *Server) DeletedSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletedSession
}

// Requests returns every request received, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, request := range s.requests {
		if request.Method == method && request.Path == path {
			count++
		}
	}
	return count
}

// CountMethod returns how many requests used method, on any path.
func (s *Server) CountMethod(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, request := range s.requests {
		if request.Method == method {
			count++
		}
	}
	return count
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimRight(r.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	var body map[string]any
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorBody("Base.1.12.MalformedJSON", err.Error()))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	authenticated := s.validToken(r.Header.Get("X-Auth-Token"))
	s.requests = append(s.requests, Request{Method: r.Method, Path: path, Body: body, Authenticated: authenticated})

	key := r.Method + " " + path
	if queued := s.failures[key]; len(queued) > 0 {
		s.failures[key] = queued[1:]
		writeJSON(w, queued[0].status, queued[0].body)
		return
	}

	switch {
	case path == "/redfish" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"v1": RootPath + "/"})
		return
	case path == RootPath && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.serviceRoot())
		return
	case path == SessionsPath && r.Method == http.MethodPost:
		s.createSession(w, body)
		return
	}

	if !authenticated {
		writeJSON(w, http.StatusUnauthorized, ErrorBody("Base.1.12.NoValidSession", "no valid session"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, path)
	case http.MethodPost:
		s.handlePost(w, path, body)
	case http.MethodPatch:
		s.handlePatch(w, path, body)
	case http.MethodDelete:
		s.handleDelete(w, path)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody("Base.1.12.OperationNotAllowed", r.Method))
	}
}

func (s *Server) validToken(token string) bool {
	if token == "" {
		return false
	}
	for _, open := range s.sessions {
		if open == token {
			return true
		}
	}
	return false
}

func (s *Server) serviceRoot() map[string]any {
	root := map[string]any{
		"@odata.id":      RootPath,
		"@odata.type":    "#ServiceRoot.v1_6_0.ServiceRoot",
		"Id":             "RootService",
		"Name":           "Root Service",
		"Vendor":         s.config.Vendor,
		"RedfishVersion": "1.11.0",
		"Systems":        link(SystemsPath),
		"Managers":       link(ManagersPath),
		"AccountService": link(AccountServicePath),
		"SessionService": link(RootPath + "/SessionService"),
		"UpdateService":  link(UpdateServicePath),
		"Links":          map[string]any{},
	}
	if !s.config.OmitSessionLink {
		root["Links"] = map[string]any{"Sessions": link(SessionsPath)}
	}
	return root
}

func (s *Server) createSession(w http.ResponseWriter, body map[string]any) {
	username, _ := body["UserName"].(string)
	password, _ := body["Password"].(string)
	if username != s.config.Username || password != s.config.Password {
		writeJSON(w, http.StatusUnauthorized, ErrorBody("Base.1.12.InsufficientPrivilege", "invalid credentials"))
		return
	}
	s.sessionSeq++
	sessionPath := SessionsPath + "/" + strconv.Itoa(s.sessionSeq)
	token := fmt.Sprintf("token-%d", s.sessionSeq)
	s.sessions[sessionPath] = token

	w.Header().Set("X-Auth-Token", token)
	w.Header().Set("Location", sessionPath)
	writeJSON(w, http.StatusCreated, map[string]any{"@odata.id": sessionPath, "UserName": username})
}

func (s *Server) handleGet(w http.ResponseWriter, path string) {
	switch {
	case path == SystemsPath:
		writeJSON(w, http.StatusOK, collection(SystemsPath, []string{SystemPath}))
	case path == SystemPath:
		writeJSON(w, http.StatusOK, s.system())
	case path == ManagersPath:
		writeJSON(w, http.StatusOK, collection(ManagersPath, []string{ManagerPath}))
	case path == ManagerPath:
		writeJSON(w, http.StatusOK, s.manager())
	case path == AccountServicePath:
		writeJSON(w, http.StatusOK, map[string]any{
			"@odata.id": AccountServicePath,
			"Accounts":  link(AccountsPath),
		})
	case path == AccountsPath:
		members := make([]string, 0, Slots)
		for slot := 1; slot <= Slots; slot++ {
			members = append(members, AccountsPath+"/"+strconv.Itoa(slot))
		}
		writeJSON(w, http.StatusOK, collection(AccountsPath, members))
	case strings.HasPrefix(path, AccountsPath+"/"):
		slot, ok := s.slotOf(path)
		if !ok {
			notFound(w, path)
			return
		}
		account := copyMap(s.accounts[slot])
		account["@odata.id"] = path
		account["Id"] = strconv.Itoa(slot)
		writeJSON(w, http.StatusOK, account)
	case path == UpdateServicePath:
		writeJSON(w, http.StatusOK, map[string]any{
			"@odata.id": UpdateServicePath,
			"Actions": map[string]any{
				"#UpdateService.SimpleUpdate": map[string]any{
					"target": SimpleUpdatePath,
					"TransferProtocol@Redfish.AllowableValues": []any{"HTTP", "HTTPS", "NFS", "CIFS"},
				},
			},
		})
	case path == LicensesPath:
		ids := make([]string, 0, len(s.licenses))
		for id := range s.licenses {
			ids = append(ids, LicensesPath+"/"+id)
		}
		sort.Strings(ids)
		writeJSON(w, http.StatusOK, collection(LicensesPath, ids))
	case strings.HasPrefix(path, LicensesPath+"/"):
		license, ok := s.licenses[strings.TrimPrefix(path, LicensesPath+"/")]
		if !ok {
			notFound(w, path)
			return
		}
		writeJSON(w, http.StatusOK, license)
	case path == LicenseServicePath:
		writeJSON(w, http.StatusOK, map[string]any{
			"@odata.id": LicenseServicePath,
			"Actions": map[string]any{
				"#DellLicenseManagementService.ImportLicense": map[string]any{"target": ImportLicensePath},
				"#DellLicenseManagementService.DeleteLicense": map[string]any{"target": DeleteLicensePath},
			},
		})
	default:
		if j, ok := s.jobs[path]; ok {
			index := j.polls
			if index >= len(j.script) {
				index = len(j.script) - 1
			}
			j.polls++
			doc := copyMap(j.script[index])
			doc["@odata.id"] = path
			doc["Id"] = path[strings.LastIndexByte(path, '/')+1:]
			writeJSON(w, http.StatusOK, doc)
			return
		}
		if doc, ok := s.resources[path]; ok {
			writeJSON(w, http.StatusOK, doc)
			return
		}
		notFound(w, path)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, path string, body map[string]any) {
	switch path {
	case ResetPath:
		if s.config.OmitResetAction {
			notFound(w, path)
			return
		}
		resetType, _ := body["ResetType"].(string)
		switch resetType {
		case "On", "ForceRestart", "GracefulRestart", "PowerCycle":
			s.powerState = "On"
		case "ForceOff", "GracefulShutdown":
			s.powerState = "Off"
		default:
			writeJSON(w, http.StatusBadRequest, ErrorBody("Base.1.12.ActionParameterValueNotInList", resetType))
			return
		}
		s.resets = append(s.resets, resetType)
		w.WriteHeader(http.StatusNoContent)
	case ImportPath, SimpleUpdatePath:
		s.jobSeq++
		jobPath := JobsPath + "/JID_" + strconv.Itoa(1000+s.jobSeq)
		script := s.jobScript
		if len(script) == 0 {
			script = []map[string]any{DMTFTask("Completed", "OK", 100)}
		}
		s.jobs[jobPath] = &job{script: script}
		w.Header().Set("Location", jobPath)
		w.WriteHeader(http.StatusAccepted)
	case ImportLicensePath:
		encoded, _ := body["LicenseFile"].(string)
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "\n", ""))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorBody("IDRAC.2.8.LIC010", "license file is not base64"))
			return
		}
		entitlement := between(string(decoded), "<EntitlementID>", "</EntitlementID>")
		if entitlement == "" {
			writeJSON(w, http.StatusBadRequest, ErrorBody("IDRAC.2.8.LIC011", "license file has no entitlement"))
			return
		}
		s.addLicenseLocked(entitlement, between(string(decoded), "<lang_en>", "</lang_en>"), "Perpetual")
		writeJSON(w, http.StatusOK, map[string]any{})
	case DeleteLicensePath:
		entitlement, _ := body["EntitlementID"].(string)
		if _, ok := s.licenses[entitlement]; !ok {
			writeJSON(w, http.StatusBadRequest, ErrorBody("IDRAC.2.8.LIC017", "license not found"))
			return
		}
		delete(s.licenses, entitlement)
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		notFound(w, path)
	}
}

func (s *Server) handlePatch(w http.ResponseWriter, path string, body map[string]any) {
	if strings.HasPrefix(path, AccountsPath+"/") {
		slot, ok := s.slotOf(path)
		if !ok {
			notFound(w, path)
			return
		}
		for key, value := range body {
			if key == "Password" {
				continue
			}
			s.accounts[slot][key] = value
		}
		if password, ok := body["Password"].(string); ok {
			s.accounts[slot]["PasswordSet"] = password != ""
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"@Message.ExtendedInfo": []any{map[string]any{"MessageId": "Base.1.12.Success"}},
		})
		return
	}
	if doc, ok := s.resources[path]; ok {
		for key, value := range body {
			doc[key] = value
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	notFound(w, path)
}

func (s *Server) handleDelete(w http.ResponseWriter, path string) {
	if _, ok := s.sessions[path]; ok {
		delete(s.sessions, path)
		s.deletedSession++
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if _, ok := s.resources[path]; ok {
		delete(s.resources, path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	notFound(w, path)
}

func (s *Server) system() map[string]any {
	system := map[string]any{
		"@odata.id":   SystemPath,
		"@odata.type": "#ComputerSystem.v1_12_0.ComputerSystem",
		"Id":          "System.Embedded.1",
		"Name":        "System",
		"Manufacturer": func() string {
			if s.config.Vendor == "Dell" {
				return "Dell Inc."
			}
			return s.config.Vendor
		}(),
		"Model":        "PowerEdge R640",
		"SerialNumber": "CN7475100000",
		"BiosVersion":  "2.19.1",
		"HostName":     "r640-03",
		"PowerState":   s.powerState,
		"Links": map[string]any{
			"ManagedBy": []any{link(ManagerPath)},
			"Chassis":   []any{link(ChassisPath)},
		},
		"Oem": map[string]any{
			"Dell": map[string]any{
				"DellSystem": map[string]any{"NodeID": "7XK2J83"},
			},
		},
	}
	if !s.config.OmitResetAction {
		reset := map[string]any{"target": ResetPath}
		if len(s.config.ResetTypes) > 0 {
			allowed := make([]any, len(s.config.ResetTypes))
			for i, value := range s.config.ResetTypes {
				allowed[i] = value
			}
			reset["ResetType@Redfish.AllowableValues"] = allowed
		}
		system["Actions"] = map[string]any{"#ComputerSystem.Reset": reset}
	}
	return system
}

func (s *Server) manager() map[string]any {
	return map[string]any{
		"@odata.id":       ManagerPath,
		"@odata.type":     "#Manager.v1_9_0.Manager",
		"Id":              ManagerID,
		"Name":            "Manager",
		"FirmwareVersion": "5.10.00.00",
		"Links": map[string]any{
			"Oem": map[string]any{
				"Dell": map[string]any{
					"DellLicenseCollection":        link(LicensesPath),
					"DellLicenseManagementService": link(LicenseServicePath),
				},
			},
		},
		"Actions": map[string]any{
			"Oem": map[string]any{
				"#OemManager.ImportSystemConfiguration": map[string]any{
					"target": ImportPath,
					"ShutdownType@Redfish.AllowableValues": []any{"Graceful", "Forced", "NoReboot"},
				},
			},
		},
	}
}

func (s *Server) slotOf(path string) (int, bool) {
	slot, err := strconv.Atoi(strings.TrimPrefix(path, AccountsPath+"/"))
	if err != nil || slot < 1 || slot > Slots {
		return 0, false
	}
	return slot, true
}

func link(path string) map[string]any {
	return map[string]any{"@odata.id": path}
}

func collection(path string, members []string) map[string]any {
	list := make([]any, len(members))
	for i, member := range members {
		list[i] = link(member)
	}
	return map[string]any{
		"@odata.id":           path,
		"Members":             list,
		"Members@odata.count": len(members),
	}
}

func notFound(w http.ResponseWriter, path string) {
	writeJSON(w, http.StatusNotFound, ErrorBody("Base.1.12.ResourceMissingAtURI", "The resource at the URI "+path+" was not found."))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func copyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}
	copied := make(map[string]any, len(source))
	for key, value := range source {
		copied[key] = value
	}
	return copied
}

func between(text, open, close string) string {
	start := strings.Index(text, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(text[start:], close)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(text[start : start+end])
}
