// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that end
// up in store keys and URL paths. Milestone and project IDs are embedded
// in composite badger keys and in synthetic edge IDs, so characters that
// collide with the key separators must be rejected at the boundary.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches valid milestone and project identifiers.
// Allows: letters, digits, dots, hyphens. UUIDs pass unchanged.
// Underscores are excluded: edge IDs join two milestone IDs with an
// underscore, and colons separate key prefixes in the store.
// Max length: 64 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]{0,63}$`)

// ValidateID validates a milestone or project identifier.
//
// Valid identifiers:
//   - 1-64 characters
//   - Letters A-Z, a-z
//   - Digits 0-9
//   - Dots (.) and hyphens (-); UUIDs are therefore accepted
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateID(projectID); err != nil {
//	    return nil, fmt.Errorf("invalid project id: %w", err)
//	}
//	// Safe to embed in a store key
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format: %q (must be 1-64 alphanumeric chars, dots, or hyphens)", id)
	}

	return nil
}

// ValidateIDs validates multiple identifiers.
// Returns an error listing all invalid identifiers if any fail validation.
func ValidateIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}

// SanitizeID trims and validates an identifier.
// Returns the trimmed identifier if valid, or an error if invalid.
//
// Use this at request boundaries where surrounding whitespace is a
// likely copy-paste artifact:
//
//	safeID, err := validation.SanitizeID(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeID(id string) (string, error) {
	normalized := strings.TrimSpace(id)
	if err := ValidateID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
