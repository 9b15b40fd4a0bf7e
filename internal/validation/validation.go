// Package validation holds the pure identifier checks that run before any
// eligibility or storage work. A failure here short-circuits the request.
package validation

import (
	"regexp"
	"strings"

	"holds-service/internal/models"
)

const maxIDLength = 100

var (
	userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// Item ids additionally allow colons for compound identifiers like "BK-1001:copy2".
	itemIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)
)

// ValidateUserID checks the shape of a patron identifier. No I/O.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return models.NewValidationError("user_id", "User ID must be a non-empty string")
	}
	if len(userID) > maxIDLength {
		return models.NewValidationError("user_id", "User ID is too long (max 100 characters)")
	}
	if !userIDPattern.MatchString(userID) {
		return models.NewValidationError("user_id", "User ID contains invalid characters (only alphanumeric, hyphens, and underscores allowed)")
	}
	return nil
}

// ValidateItemID checks the shape of a catalog item identifier. No I/O.
func ValidateItemID(itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return models.NewValidationError("item_id", "Item ID must be a non-empty string")
	}
	if len(itemID) > maxIDLength {
		return models.NewValidationError("item_id", "Item ID is too long (max 100 characters)")
	}
	if !itemIDPattern.MatchString(itemID) {
		return models.NewValidationError("item_id", "Item ID contains invalid characters")
	}
	return nil
}

// ValidateRecordID checks an opaque hold/reservation identifier.
func ValidateRecordID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError(field, "ID must be a non-empty string")
	}
	return nil
}
