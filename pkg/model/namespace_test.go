package model_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestResolveNamespace(t *testing.T) {
	ns, err := model.ResolveNamespace("memories_", "tenant_001", "project_001")
	gt.NoError(t, err)
	gt.Equal(t, ns, model.Namespace("memories_10_tenant_001__11_project_001"))

	// Same pair always resolves to the same namespace
	again, err := model.ResolveNamespace("memories_", "tenant_001", "project_001")
	gt.NoError(t, err)
	gt.Equal(t, ns, again)
}

func TestResolveNamespaceNoCollision(t *testing.T) {
	// Without length prefixes ("ab", "c") and ("a", "bc") would both
	// concatenate to the same name
	ns1, err := model.ResolveNamespace("m_", "ab", "c")
	gt.NoError(t, err)
	ns2, err := model.ResolveNamespace("m_", "a", "bc")
	gt.NoError(t, err)

	gt.True(t, ns1 != ns2)
}

func TestResolveNamespaceValidIdentifiers(t *testing.T) {
	for _, id := range []string{
		"a",
		"tenant-001",
		"Tenant_001",
		"0abc",
		strings.Repeat("x", 64),
	} {
		t.Run(id, func(t *testing.T) {
			_, err := model.ResolveNamespace("m_", id, "p")
			gt.NoError(t, err)
		})
	}
}

func TestResolveNamespaceInvalidIdentifiers(t *testing.T) {
	testCases := []struct {
		name     string
		tenantID string
	}{
		{"empty", ""},
		{"leading underscore", "_tenant"},
		{"leading dash", "-tenant"},
		{"space", "tenant 001"},
		{"dot", "tenant.001"},
		{"quote", `tenant"001`},
		{"semicolon", "tenant;001"},
		{"too long", strings.Repeat("x", 65)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.ResolveNamespace("m_", tc.tenantID, "project")
			gt.Error(t, err)
			gt.True(t, goerr.HasTag(err, errs.TagInvalidIdentifier))
		})
	}

	// project_id is validated with the same rules
	_, err := model.ResolveNamespace("m_", "tenant", "pro ject")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagInvalidIdentifier))
}

func TestResolveNamespaceInvalidPrefix(t *testing.T) {
	// The prefix is spliced into DDL, so it is held to the identifier rules
	for _, prefix := range []string{"", `mem"ories_`, "mem ories_", "_mem"} {
		_, err := model.ResolveNamespace(prefix, "tenant", "project")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, errs.TagInvalidIdentifier))
	}
}
