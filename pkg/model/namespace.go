package model

import (
	"fmt"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/goerr/v2"
)

// Namespace is the name of the isolated storage unit backing one
// (tenant, project) pair.
type Namespace string

const maxIdentifierLen = 64

// ResolveNamespace maps a (tenant, project) pair to its namespace name.
// The encoding is length-prefixed so that distinct pairs can never
// collide, e.g. ("ab", "c") and ("a", "bc") resolve differently. The
// table prefix ends up in DDL and is held to the same naming rules as
// the identifiers.
func ResolveNamespace(prefix, tenantID, projectID string) (Namespace, error) {
	if err := validateIdentifier("table_prefix", prefix); err != nil {
		return "", err
	}
	if err := validateIdentifier("tenant_id", tenantID); err != nil {
		return "", err
	}
	if err := validateIdentifier("project_id", projectID); err != nil {
		return "", err
	}

	return Namespace(fmt.Sprintf("%s%d_%s__%d_%s", prefix, len(tenantID), tenantID, len(projectID), projectID)), nil
}

// validateIdentifier enforces the storage engine naming rules: first
// character alphanumeric, the rest alphanumeric, '_' or '-'.
func validateIdentifier(name, v string) error {
	if v == "" {
		return goerr.New("identifier must not be empty",
			goerr.T(errs.TagInvalidIdentifier), goerr.V("field", name))
	}
	if len(v) > maxIdentifierLen {
		return goerr.New("identifier is too long",
			goerr.T(errs.TagInvalidIdentifier),
			goerr.V("field", name), goerr.V("length", len(v)))
	}

	for i, c := range v {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case (c == '_' || c == '-') && i > 0:
		default:
			return goerr.New("identifier contains disallowed character",
				goerr.T(errs.TagInvalidIdentifier),
				goerr.V("field", name), goerr.V("value", v))
		}
	}

	return nil
}
