package models

import (
	"reflect"
	"testing"
)

func TestRoleGroup(t *testing.T) {
	tests := []struct {
		role  Role
		group string
		ok    bool
	}{
		{RoleSecurity, GroupSecurity, true},
		{RoleManagement, GroupManagement, true},
		{RoleUser, "", false},
		{Role("guest"), "", false},
	}

	for _, tt := range tests {
		group, ok := tt.role.Group()
		if group != tt.group || ok != tt.ok {
			t.Errorf("%q.Group() = %q, %v; want %q, %v", tt.role, group, ok, tt.group, tt.ok)
		}
	}
}

func TestRoleChannels(t *testing.T) {
	if got := RoleUser.Channels(); !reflect.DeepEqual(got, []string{"security", "management"}) {
		t.Errorf("user channels = %v", got)
	}
	if got := RoleSecurity.Channels(); !reflect.DeepEqual(got, []string{"security"}) {
		t.Errorf("security channels = %v", got)
	}
	if got := Role("guest").Channels(); !reflect.DeepEqual(got, []string{"guest"}) {
		t.Errorf("guest channels = %v", got)
	}
}

func TestSignalTypeValid(t *testing.T) {
	for _, st := range []SignalType{SignalTypeOffer, SignalTypeAnswer, SignalTypeCandidate} {
		if !st.Valid() {
			t.Errorf("%q should be valid", st)
		}
	}
	if SignalType("candidate").Valid() {
		t.Error("bare candidate type should not be relayed")
	}
}
