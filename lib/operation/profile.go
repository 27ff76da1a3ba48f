// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// ProfileFormat is the encoding of a Server Configuration Profile.
type ProfileFormat string

const (
	ProfileJSON ProfileFormat = "JSON"
	ProfileXML  ProfileFormat = "XML"
)

// profileRoot is the top-level element (XML) or key (JSON) of every
// exported profile.
const profileRoot = "SystemConfiguration"

// Profile is a Server Configuration Profile ready to be sent as the
// import buffer.
type Profile struct {
	Format ProfileFormat
	// Buffer is the document sent as ImportBuffer. JSON profiles are
	// compacted after comments are stripped.
	Buffer string
	// Components counts the top-level components the profile sets.
	Components int
}

// ReadProfile reads a profile from path. Files ending in .xml are
// parsed as XML; everything else as JSONC.
func ReadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	format := ProfileJSON
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		format = ProfileXML
	}
	profile, err := ParseProfile(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profile, nil
}

// ParseProfile checks that data is a profile in format and returns it.
func ParseProfile(data []byte, format ProfileFormat) (*Profile, error) {
	switch format {
	case ProfileJSON:
		return parseJSONProfile(data)
	case ProfileXML:
		return parseXMLProfile(data)
	}
	return nil, fmt.Errorf("unknown profile format %q", format)
}

func parseJSONProfile(data []byte) (*Profile, error) {
	stripped := jsonc.ToJSON(data)

	var document map[string]json.RawMessage
	if err := json.Unmarshal(stripped, &document); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	root, ok := document[profileRoot]
	if !ok {
		return nil, fmt.Errorf("profile has no %s object", profileRoot)
	}
	var system struct {
		Components []json.RawMessage `json:"Components"`
	}
	if err := json.Unmarshal(root, &system); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", profileRoot, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, stripped); err != nil {
		return nil, fmt.Errorf("compacting profile: %w", err)
	}
	return &Profile{
		Format:     ProfileJSON,
		Buffer:     compact.String(),
		Components: len(system.Components),
	}, nil
}

func parseXMLProfile(data []byte) (*Profile, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	components := 0
	sawRoot := false
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
		switch element := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if element.Name.Local != profileRoot {
					return nil, fmt.Errorf("profile root is <%s>, want <%s>", element.Name.Local, profileRoot)
				}
				sawRoot = true
			}
			if depth == 2 && element.Name.Local == "Component" {
				components++
			}
		case xml.EndElement:
			depth--
		}
	}
	if !sawRoot {
		return nil, fmt.Errorf("profile has no <%s> element", profileRoot)
	}
	return &Profile{
		Format:     ProfileXML,
		Buffer:     string(data),
		Components: components,
	}, nil
}

// readJSONC unmarshals a JSONC file into target.
func readJSONC(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), target); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
