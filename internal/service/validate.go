package service

import (
	"regexp"
	"strings"

	"github.com/iliyamo/space-booking/internal/model"
)

var (
	spaceNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9 ]*$`)
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

// ValidateSpaceName checks the naming rule shared by spaces and locations.
func ValidateSpaceName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return invalid(CodeInvalidField, "name is required")
	case len(name) > model.MaxNameLen:
		return invalid(CodeInvalidField, "name must be at most %d characters", model.MaxNameLen)
	case !spaceNamePattern.MatchString(name):
		return invalid(CodeInvalidField, "name must start with a letter and contain only letters, digits and spaces")
	}
	return nil
}

// ValidateUsername checks the login handle rule.
func ValidateUsername(username string) error {
	switch {
	case len(username) < model.MinHandleLen || len(username) > model.MaxNameLen:
		return invalid(CodeInvalidField, "username must be %d to %d characters", model.MinHandleLen, model.MaxNameLen)
	case !usernamePattern.MatchString(username):
		return invalid(CodeInvalidField, "username must start with a letter and contain only letters, digits and underscores")
	}
	return nil
}

func validateFloor(floor int) error {
	if floor < model.MinFloor || floor > model.MaxFloor {
		return invalid(CodeInvalidField, "floor must be between %d and %d", model.MinFloor, model.MaxFloor)
	}
	return nil
}
