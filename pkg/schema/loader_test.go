package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

func TestDefaultSchema(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	port, ok := s.Object(sai.ObjectTypePort)
	if !ok {
		t.Fatal("port type missing")
	}
	lanes, ok := port.AttrByName("SAI_PORT_ATTR_HW_LANE_LIST")
	if !ok {
		t.Fatal("SAI_PORT_ATTR_HW_LANE_LIST missing")
	}
	if lanes.Kind != sai.KindU32List || !lanes.IsMandatoryOnCreate() || !lanes.IsCreateOnly() {
		t.Errorf("HW_LANE_LIST = %+v", lanes)
	}
	if got := len(port.Stats()); got != 6 {
		t.Errorf("port stats = %d, want 6", got)
	}

	fec, _ := port.AttrByName("SAI_PORT_ATTR_FEC_MODE")
	if !fec.IsEnum() || fec.Default != sai.Value(sai.S32(0)) {
		t.Errorf("FEC_MODE enum=%v default=%v", fec.IsEnum(), fec.Default)
	}

	vlan, _ := s.Object(sai.ObjectTypeVlan)
	keys := vlan.KeyAttrs()
	if len(keys) != 1 || keys[0].Name != "SAI_VLAN_ATTR_VLAN_ID" {
		t.Errorf("vlan key attrs = %v", keys)
	}

	for _, ot := range s.ObjectTypes() {
		if !ot.IsValid() {
			t.Errorf("schema describes invalid type %v", ot)
		}
	}
}

func TestDefaultConditions(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	rifType, _ := s.AttrByName(sai.ObjectTypeRouterInterface, "SAI_ROUTER_INTERFACE_ATTR_TYPE")
	portID, _ := s.AttrByName(sai.ObjectTypeRouterInterface, "SAI_ROUTER_INTERFACE_ATTR_PORT_ID")

	if !portID.IsConditional() || len(portID.Conditions) != 2 {
		t.Fatalf("PORT_ID conditions = %+v", portID.Conditions)
	}
	for _, c := range portID.Conditions {
		if c.Attr != rifType.ID {
			t.Errorf("condition attr = %d, want %d", c.Attr, rifType.ID)
		}
	}
	if portID.Conditions[0].Value != sai.Value(sai.S32(0)) {
		t.Errorf("first condition value = %v, want SAI_ROUTER_INTERFACE_TYPE_PORT", portID.Conditions[0].Value)
	}
	if !portID.Allows(sai.ObjectTypeLag) || portID.Allows(sai.ObjectTypeVlan) {
		t.Errorf("PORT_ID allowed types = %v", portID.AllowedObjectTypes)
	}

	green, _ := s.AttrByName(sai.ObjectTypeWRED, "SAI_WRED_ATTR_GREEN_MIN_THRESHOLD")
	if green.Conditions[0].Value != sai.Value(sai.Bool(true)) {
		t.Errorf("bool condition value = %v", green.Conditions[0].Value)
	}
}

func TestDefaultACLAttributes(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	redirect, _ := s.AttrByName(sai.ObjectTypeACLEntry, "SAI_ACL_ENTRY_ATTR_ACTION_REDIRECT")
	if !redirect.CarriesObjects() {
		t.Error("ACTION_REDIRECT should carry objects")
	}
	srcIP, _ := s.AttrByName(sai.ObjectTypeACLEntry, "SAI_ACL_ENTRY_ATTR_FIELD_SRC_IP")
	if srcIP.CarriesObjects() {
		t.Error("FIELD_SRC_IP should not carry objects")
	}
	if srcIP.Default != sai.Value(sai.ACLField{}) {
		t.Errorf("FIELD_SRC_IP default = %#v, want disabled", srcIP.Default)
	}

	v, err := srcIP.Parse("10.0.0.1&mask:255.255.255.0")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := srcIP.Format(v); got != "10.0.0.1&mask:255.255.255.0" {
		t.Errorf("Format = %q", got)
	}
}

func TestBuildRejects(t *testing.T) {
	base := func(attr AttrSpec) *File {
		return &File{
			Enums: map[string]map[string]int32{"color": {"RED": 0, "BLUE": 1}},
			ObjectTypes: []ObjectTypeSpec{{
				Name: "SAI_OBJECT_TYPE_VLAN",
				Attributes: []AttrSpec{
					{Name: "MODE", Kind: "s32", Enum: "color", Flags: []string{"create_and_set"}, Default: "RED"},
					attr,
				},
			}},
		}
	}

	tests := []struct {
		name string
		attr AttrSpec
		want string
	}{
		{"no access flag", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"mandatory_on_create"}},
			"exactly one of"},
		{"two access flags", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"create_only", "read_only"}},
			"exactly one of"},
		{"unknown flag", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"create_only", "sticky"}},
			`unknown flag "sticky"`},
		{"key not create only", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"create_and_set", "key"}},
			"key attributes must be create_only"},
		{"mandatory read only", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"read_only", "mandatory_on_create"}},
			"cannot be mandatory"},
		{"unknown kind", AttrSpec{Name: "A", Kind: "u128", Flags: []string{"create_only"}},
			"unknown value kind"},
		{"object without types", AttrSpec{Name: "A", Kind: "object_id", Flags: []string{"create_only"}},
			"must list allowed object types"},
		{"types on scalar", AttrSpec{Name: "A", Kind: "u32", Objects: []string{"SAI_OBJECT_TYPE_PORT"}, Flags: []string{"create_only"}},
			"non-object attribute"},
		{"missing enum", AttrSpec{Name: "A", Kind: "s32", Enum: "shape", Flags: []string{"create_only"}},
			"requires enum 'shape'"},
		{"enum on u32", AttrSpec{Name: "A", Kind: "u32", Enum: "color", Flags: []string{"create_only"}},
			"enum requires kind"},
		{"bad default", AttrSpec{Name: "A", Kind: "u8", Flags: []string{"create_only"}, Default: "300"},
			"default"},
		{"illegal enum default", AttrSpec{Name: "A", Kind: "s32", Enum: "color", Flags: []string{"create_only"}, Default: "7"},
			"not a legal enum value"},
		{"acl data kind on scalar", AttrSpec{Name: "A", Kind: "u32", ACLDataKind: "u8", Flags: []string{"create_only"}},
			"acl_data_kind only applies"},
		{"missing condition attr", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"create_only"},
			Conditions: []ConditionSpec{{Attr: "NOPE", Value: "1"}}},
			"requires condition attribute 'NOPE'"},
		{"condition on u32", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"create_only"},
			Conditions: []ConditionSpec{{Attr: "A", Value: "1"}}},
			"must be bool or enum"},
		{"bad condition value", AttrSpec{Name: "A", Kind: "u32", Flags: []string{"create_only"},
			Conditions: []ConditionSpec{{Attr: "MODE", Value: "GREEN"}}},
			"condition value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(base(tt.attr))
			if err == nil {
				t.Fatal("Build() should fail")
			}
			if !errors.Is(err, util.ErrValidationFailed) {
				t.Errorf("Build() error %v should wrap ErrValidationFailed", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build() error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestBuildReportsEveryProblem(t *testing.T) {
	f := &File{ObjectTypes: []ObjectTypeSpec{
		{Name: "SAI_OBJECT_TYPE_BOGUS"},
		{Name: "SAI_OBJECT_TYPE_PORT", Stats: []string{"X", "X"}, Attributes: []AttrSpec{
			{Name: "A", Kind: "u32", Flags: []string{"create_only"}},
			{Name: "A", Kind: "u32", Flags: []string{"create_only"}},
		}},
		{Name: "SAI_OBJECT_TYPE_PORT"},
	}}
	_, err := Build(f)
	var verr *util.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Build() = %v, want *util.ValidationError", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("len(Errors) = %d, want 4: %v", len(verr.Errors), verr.Errors)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	data := `
object_types:
  - name: SAI_OBJECT_TYPE_VIRTUAL_ROUTER
    attributes:
      - name: SAI_VIRTUAL_ROUTER_ATTR_ADMIN_V4_STATE
        kind: bool
        flags: [create_and_set]
        default: "true"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	md, ok := s.Attr(sai.ObjectTypeVirtualRouter, 0)
	if !ok || md.Default != sai.Value(sai.Bool(true)) {
		t.Errorf("attr 0 = %+v", md)
	}
	if got := s.AttrName(sai.ObjectTypeVirtualRouter, 9); got != "SAI_OBJECT_TYPE_VIRTUAL_ROUTER attr 9" {
		t.Errorf("AttrName fallback = %q", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) should fail")
	}
	if err := os.WriteFile(path, []byte("object_types: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load(malformed) should fail")
	}
}
