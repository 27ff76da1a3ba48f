// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package inventory loads the lab machine database and BMC credentials
// and resolves machine names into [fleet.Target] values.
//
// Two YAML files make up the inventory:
//
//	# machines file (ACM_LAB_MACHINE_INFO)
//	machines:
//	  - name: r650-07
//	    bmc:
//	      address: r650-07-bmc.lab.example
//	  - name: default
//	    bmc:
//	      address: "%s-bmc.lab.example"
//
//	# credentials file (ACM_LAB_MACHINE_CREDS), optionally age-encrypted
//	global:
//	  bmc:       {username: fleetops, password: ...}
//	  bmc-root:  {username: root, password: ...}
//	  bmc-admin: {username: admin, password: ...}
//
// Credentials are chosen per standard user: "bmc" (the default), or
// one of "default", "root", "admin", "mgmt", which read the
// "bmc-<user>" entry. Username or password set on a machine's bmc
// entry override the global ones.
//
// Machine names may be given as fully qualified host names; only the
// first label is looked up. A "default" entry, when requested, stands
// in for unknown machines with every %s in its address and redfish
// fields replaced by the machine name.
//
// An Inventory is immutable after Load and safe for concurrent use.
// Close releases the protected password memory.
package inventory
