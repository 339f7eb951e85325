package policy_test

import (
	"testing"

	"sweetshop/internal/domain/model"
	"sweetshop/internal/domain/policy"

	"github.com/stretchr/testify/assert"
)

var (
	anonymous = model.Anonymous()
	customer  = model.Principal{ID: "u-1"}
	admin     = model.Principal{ID: "u-2", IsAdmin: true}
)

func TestDecide_Matrix(t *testing.T) {
	cases := []struct {
		op       policy.Operation
		customer policy.Decision
	}{
		{policy.OpList, policy.Allow},
		{policy.OpRead, policy.Allow},
		{policy.OpSearch, policy.Allow},
		{policy.OpPurchase, policy.Allow},
		{policy.OpCreate, policy.DenyForbidden},
		{policy.OpUpdate, policy.DenyForbidden},
		{policy.OpPartialUpdate, policy.DenyForbidden},
		{policy.OpDelete, policy.DenyForbidden},
		{policy.OpRestock, policy.DenyForbidden},
	}

	for _, tc := range cases {
		t.Run(string(tc.op), func(t *testing.T) {
			assert.Equal(t, policy.DenyUnauthenticated, policy.Decide(tc.op, anonymous))
			assert.Equal(t, tc.customer, policy.Decide(tc.op, customer))
			assert.Equal(t, policy.Allow, policy.Decide(tc.op, admin))
		})
	}
}

func TestDecide_UnknownOperation(t *testing.T) {
	assert.Equal(t, policy.DenyUnauthenticated, policy.Decide("export", anonymous))
	assert.Equal(t, policy.DenyForbidden, policy.Decide("export", customer))
	assert.Equal(t, policy.DenyForbidden, policy.Decide("export", admin))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allow", policy.Allow.String())
	assert.Equal(t, "forbidden", policy.DenyForbidden.String())
	assert.Equal(t, "unauthenticated", policy.DenyUnauthenticated.String())
}
