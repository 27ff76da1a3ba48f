// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package idrac

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/acmlab/bmcfleet/lib/digest"
)

// LicenseNamespace is the XML namespace of Dell license files.
const LicenseNamespace = "http://www.dell.com/2011/12G/licensing"

// base64LineLength is the wrapping the iDRAC import action accepts;
// single-line encodings are rejected.
const base64LineLength = 76

// LicenseFile is a Dell license file read from disk.
type LicenseFile struct {
	EntitlementID string
	// DeviceClass is the licensed device class, e.g. "iDRAC".
	DeviceClass string
	// Description is the English product description.
	Description string
	Contents    []byte
	Digest      digest.Digest
}

type licenseDocument struct {
	XMLName xml.Name
	Data    struct {
		DeviceClass struct {
			ID string `xml:"ID,attr"`
		} `xml:"DeviceClass"`
		EntitlementID      string `xml:"EntitlementID"`
		ProductDescription struct {
			English string `xml:"lang_en"`
		} `xml:"ProductDescription"`
	} `xml:"LicenseData"`
}

// ReadLicenseFile reads and parses the license file at path.
func ReadLicenseFile(path string) (*LicenseFile, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("idrac: reading license file: %w", err)
	}
	file, err := ParseLicenseFile(contents)
	if err != nil {
		return nil, fmt.Errorf("idrac: %s: %w", path, err)
	}
	return file, nil
}

// ParseLicenseFile extracts the entitlement id, device class, and
// product description from a license document.
func ParseLicenseFile(contents []byte) (*LicenseFile, error) {
	var document licenseDocument
	if err := xml.NewDecoder(bytes.NewReader(contents)).Decode(&document); err != nil {
		return nil, fmt.Errorf("parsing license XML: %w", err)
	}
	if document.XMLName.Space != LicenseNamespace {
		return nil, fmt.Errorf("unrecognized license schema %q", document.XMLName.Space)
	}

	file := &LicenseFile{
		EntitlementID: strings.TrimSpace(document.Data.EntitlementID),
		DeviceClass:   strings.TrimSpace(document.Data.DeviceClass.ID),
		Description:   strings.TrimSpace(document.Data.ProductDescription.English),
		Contents:      contents,
		Digest:        digest.Sum(digest.License, contents),
	}
	if file.EntitlementID == "" {
		return nil, fmt.Errorf("license has no EntitlementID")
	}
	if file.Description == "" {
		file.Description = file.EntitlementID
	}
	return file, nil
}

// Encoded returns the contents as base64 wrapped at 76 columns, the
// form the import action expects.
func (f *LicenseFile) Encoded() string {
	encoded := base64.StdEncoding.EncodeToString(f.Contents)
	var builder strings.Builder
	builder.Grow(len(encoded) + len(encoded)/base64LineLength)
	for start := 0; start < len(encoded); start += base64LineLength {
		if start > 0 {
			builder.WriteByte('\n')
		}
		end := min(start+base64LineLength, len(encoded))
		builder.WriteString(encoded[start:end])
	}
	return builder.String()
}
