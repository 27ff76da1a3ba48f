// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/sealed"
)

// Environment variables naming the inventory files.
const (
	MachinesEnv    = "ACM_LAB_MACHINE_INFO"
	CredentialsEnv = "ACM_LAB_MACHINE_CREDS"
)

// DefaultEntry is the machines-file entry used as a template for
// machines the file does not list.
const DefaultEntry = "default"

var (
	// ErrUnknownMachine is returned for names the machines file does
	// not list.
	ErrUnknownMachine = errors.New("inventory: machine not recorded")
	// ErrNoCredentials is returned when neither the machine nor the
	// global section supplies a login for the requested user.
	ErrNoCredentials = errors.New("inventory: no credentials")
)

// StandardUser selects which global credentials a login uses.
type StandardUser string

const (
	UserBMC     StandardUser = "bmc"
	UserDefault StandardUser = "default"
	UserRoot    StandardUser = "root"
	UserAdmin   StandardUser = "admin"
	UserMgmt    StandardUser = "mgmt"
)

// StandardUsers lists every recognized standard user.
var StandardUsers = []StandardUser{UserBMC, UserDefault, UserRoot, UserAdmin, UserMgmt}

// ParseStandardUser validates name. Empty means UserBMC.
func ParseStandardUser(name string) (StandardUser, error) {
	if name == "" {
		return UserBMC, nil
	}
	for _, user := range StandardUsers {
		if string(user) == name {
			return user, nil
		}
	}
	return "", fmt.Errorf("inventory: standard user %q is not recognized", name)
}

// credentialsKey is the global section entry for user.
func (u StandardUser) credentialsKey() string {
	if u == UserBMC {
		return "bmc"
	}
	return "bmc-" + string(u)
}

// Machine is one machines-file entry.
type Machine struct {
	Name string
	// Address is the BMC host name or IP address.
	Address string
	// Redfish is an explicit Redfish base URL, if the entry has one.
	Redfish string
	// Username is the machine-specific login name, if any.
	Username string

	password *credential.Secret
}

// Endpoint is the URL clients connect to: Redfish when set, otherwise
// https on Address.
func (m Machine) Endpoint() string {
	if m.Redfish != "" {
		return m.Redfish
	}
	if strings.Contains(m.Address, "://") {
		return m.Address
	}
	return "https://" + m.Address
}

// HasPassword reports whether the entry carries its own password.
func (m Machine) HasPassword() bool { return m.password != nil }

type machinesFile struct {
	Machines []machineEntry `yaml:"machines"`
}

type machineEntry struct {
	Name string    `yaml:"name"`
	BMC  *bmcEntry `yaml:"bmc"`
}

type bmcEntry struct {
	Address  string `yaml:"address"`
	Redfish  string `yaml:"redfish"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type credentialsFile struct {
	Global map[string]loginEntry `yaml:"global"`
}

type loginEntry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Inventory is a loaded machine database with its credentials.
type Inventory struct {
	machines map[string]Machine
	order    []string
	logins   map[string]credential.Credential
}

// Options names the files Load reads.
type Options struct {
	MachinesFile    string
	CredentialsFile string
	// Identities decrypt an age-encrypted credentials file. Required
	// only when the file is encrypted.
	Identities sealed.Identities
}

// OptionsFromEnvironment fills the file paths from MachinesEnv and
// CredentialsEnv. Both must be set.
func OptionsFromEnvironment() (Options, error) {
	options := Options{
		MachinesFile:    os.Getenv(MachinesEnv),
		CredentialsFile: os.Getenv(CredentialsEnv),
	}
	if options.MachinesFile == "" {
		return Options{}, fmt.Errorf("inventory: %s environment variable not set", MachinesEnv)
	}
	if options.CredentialsFile == "" {
		return Options{}, fmt.Errorf("inventory: %s environment variable not set", CredentialsEnv)
	}
	return options, nil
}

// Load reads both inventory files.
func Load(options Options) (*Inventory, error) {
	machines, err := os.ReadFile(options.MachinesFile)
	if err != nil {
		return nil, fmt.Errorf("inventory: reading machines file: %w", err)
	}
	credentials, err := os.ReadFile(options.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("inventory: reading credentials file: %w", err)
	}

	if sealed.IsEncrypted(credentials) {
		if len(options.Identities) == 0 {
			return nil, fmt.Errorf("inventory: %s is encrypted and no age identity was given", options.CredentialsFile)
		}
		plaintext, err := sealed.Decrypt(credentials, options.Identities)
		if err != nil {
			return nil, fmt.Errorf("inventory: %s: %w", options.CredentialsFile, err)
		}
		credentials = plaintext
	}
	defer sealed.Zero(credentials)

	inventory, err := Parse(machines, credentials)
	if err != nil {
		return nil, err
	}
	return inventory, nil
}

// Parse builds an Inventory from the contents of the two files.
func Parse(machines, credentials []byte) (*Inventory, error) {
	var machineDocument machinesFile
	if err := yaml.Unmarshal(machines, &machineDocument); err != nil {
		return nil, fmt.Errorf("inventory: parsing machines file: %w", err)
	}
	if machineDocument.Machines == nil {
		return nil, fmt.Errorf("inventory: machines file has no machines list")
	}
	var credentialDocument credentialsFile
	if err := yaml.Unmarshal(credentials, &credentialDocument); err != nil {
		return nil, fmt.Errorf("inventory: parsing credentials file: %w", err)
	}

	inventory := &Inventory{
		machines: make(map[string]Machine, len(machineDocument.Machines)),
		logins:   make(map[string]credential.Credential, len(credentialDocument.Global)),
	}
	if err := inventory.addMachines(machineDocument.Machines); err != nil {
		inventory.Close()
		return nil, err
	}
	if err := inventory.addLogins(credentialDocument.Global); err != nil {
		inventory.Close()
		return nil, err
	}
	return inventory, nil
}

func (inv *Inventory) addMachines(entries []machineEntry) error {
	for index, entry := range entries {
		if entry.Name == "" {
			return fmt.Errorf("inventory: machine %d has no name", index+1)
		}
		if _, exists := inv.machines[entry.Name]; exists {
			return fmt.Errorf("inventory: machine %s is listed twice", entry.Name)
		}
		if entry.BMC == nil || entry.BMC.Address == "" {
			return fmt.Errorf("inventory: machine %s has no bmc address", entry.Name)
		}
		machine := Machine{
			Name:     entry.Name,
			Address:  entry.BMC.Address,
			Redfish:  entry.BMC.Redfish,
			Username: entry.BMC.Username,
		}
		if entry.BMC.Password != "" {
			password, err := credential.NewSecretFromString(entry.BMC.Password)
			if err != nil {
				return fmt.Errorf("inventory: machine %s: %w", entry.Name, err)
			}
			machine.password = password
		}
		inv.machines[entry.Name] = machine
		inv.order = append(inv.order, entry.Name)
	}
	return nil
}

func (inv *Inventory) addLogins(entries map[string]loginEntry) error {
	for key, entry := range entries {
		if entry.Username == "" || entry.Password == "" {
			return fmt.Errorf("inventory: global.%s needs both username and password", key)
		}
		login, err := credential.New(entry.Username, entry.Password)
		if err != nil {
			return fmt.Errorf("inventory: global.%s: %w", key, err)
		}
		inv.logins[key] = login
	}
	return nil
}

// Close releases every password. The Inventory must not be used
// afterwards; Targets already resolved keep their own copies.
func (inv *Inventory) Close() error {
	var errs []error
	for _, machine := range inv.machines {
		if machine.password != nil {
			errs = append(errs, machine.password.Close())
		}
	}
	for _, login := range inv.logins {
		errs = append(errs, login.Close())
	}
	return errors.Join(errs...)
}

// Names returns the listed machines in file order, without the
// default entry.
func (inv *Inventory) Names() []string {
	names := make([]string, 0, len(inv.order))
	for _, name := range inv.order {
		if name != DefaultEntry {
			names = append(names, name)
		}
	}
	return names
}

// ShortName reduces a fully qualified host name to its first label.
func ShortName(name string) string {
	short, _, _ := strings.Cut(name, ".")
	return short
}

// Lookup returns the entry for name. With useDefault, a machine the
// file does not list is built from the default entry.
func (inv *Inventory) Lookup(name string, useDefault bool) (Machine, error) {
	short := ShortName(name)
	if short == "" {
		return Machine{}, fmt.Errorf("%w: empty machine name", ErrUnknownMachine)
	}
	if machine, ok := inv.machines[short]; ok && short != DefaultEntry {
		return machine, nil
	}
	if !useDefault {
		return Machine{}, fmt.Errorf("%w: %s", ErrUnknownMachine, short)
	}
	template, ok := inv.machines[DefaultEntry]
	if !ok {
		return Machine{}, fmt.Errorf("%w: %s (and there is no %s entry)", ErrUnknownMachine, short, DefaultEntry)
	}
	machine := template
	machine.Name = short
	machine.Address = strings.ReplaceAll(template.Address, "%s", short)
	machine.Redfish = strings.ReplaceAll(template.Redfish, "%s", short)
	return machine, nil
}

// Login selects the credentials Resolve uses.
type Login struct {
	// Username and Password, when Username is set, override everything
	// in the inventory. Password is borrowed and copied.
	Username string
	Password *credential.Secret
	// User picks the global credentials entry. Empty means UserBMC.
	User StandardUser
	// UseDefaultEntry allows machines missing from the file.
	UseDefaultEntry bool
}

// Resolve builds the fleet target for name. The returned Password is a
// fresh copy the caller must close.
func (inv *Inventory) Resolve(name string, login Login) (fleet.Target, error) {
	machine, err := inv.Lookup(name, login.UseDefaultEntry)
	if err != nil {
		return fleet.Target{}, err
	}

	username, password, err := inv.credentialsFor(machine, login)
	if err != nil {
		return fleet.Target{}, err
	}
	copied, err := credential.NewSecretFromString(password.String())
	if err != nil {
		return fleet.Target{}, fmt.Errorf("inventory: %s: %w", machine.Name, err)
	}
	return fleet.Target{
		Name:     machine.Name,
		Endpoint: machine.Endpoint(),
		Username: username,
		Password: copied,
	}, nil
}

// ResolveAll resolves every name. On error, targets already built are
// closed.
func (inv *Inventory) ResolveAll(names []string, login Login) ([]fleet.Target, error) {
	targets := make([]fleet.Target, 0, len(names))
	for _, name := range names {
		target, err := inv.Resolve(name, login)
		if err != nil {
			CloseTargets(targets)
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// CloseTargets releases the passwords of targets built by Resolve.
func CloseTargets(targets []fleet.Target) {
	for _, target := range targets {
		if target.Password != nil {
			target.Password.Close()
		}
	}
}

func (inv *Inventory) credentialsFor(machine Machine, login Login) (string, *credential.Secret, error) {
	if login.Username != "" {
		if login.Password == nil {
			return "", nil, fmt.Errorf("inventory: a password is required with username %q", login.Username)
		}
		return login.Username, login.Password, nil
	}

	user := login.User
	if user == "" {
		user = UserBMC
	}
	username := machine.Username
	password := machine.password
	if username != "" && password != nil {
		return username, password, nil
	}

	global, ok := inv.logins[user.credentialsKey()]
	if !ok {
		return "", nil, fmt.Errorf("%w: no global credentials for standard user %q (global.%s)",
			ErrNoCredentials, user, user.credentialsKey())
	}
	if username == "" {
		username = global.Username
	}
	if password == nil {
		password = global.Password
	}
	return username, password, nil
}
