package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// File is the YAML layout of a schema file. Attribute ids are assigned by
// position within each object type, starting at zero.
type File struct {
	Enums       map[string]map[string]int32 `yaml:"enums"`
	ObjectTypes []ObjectTypeSpec            `yaml:"object_types"`
}

// ObjectTypeSpec describes one object type in a schema file.
type ObjectTypeSpec struct {
	Name       string     `yaml:"name"`
	Stats      []string   `yaml:"stats,omitempty"`
	Attributes []AttrSpec `yaml:"attributes"`
}

// AttrSpec describes one attribute in a schema file.
type AttrSpec struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"`
	Flags       []string        `yaml:"flags"`
	Objects     []string        `yaml:"objects,omitempty"`
	AllowNull   bool            `yaml:"allow_null,omitempty"`
	ACLDataKind string          `yaml:"acl_data_kind,omitempty"`
	Enum        string          `yaml:"enum,omitempty"`
	Default     string          `yaml:"default,omitempty"`
	Conditions  []ConditionSpec `yaml:"conditions,omitempty"`
}

// ConditionSpec names another attribute of the same type and the value
// that enables the conditional attribute.
type ConditionSpec struct {
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}

//go:embed default.yaml
var defaultSchema []byte

var (
	defaultOnce sync.Once
	defaultVal  *Schema
	defaultErr  error
)

// Default returns the built-in schema.
func Default() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultVal, defaultErr = Parse(defaultSchema)
	})
	return defaultVal, defaultErr
}

// Load reads and validates a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates schema YAML.
func Parse(data []byte) (*Schema, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return Build(&f)
}

// Build validates a decoded schema file and produces the lookup tables.
// Every problem found is reported, not just the first.
func Build(f *File) (*Schema, error) {
	v := &util.ValidationBuilder{}

	enums := make(map[string]*Enum, len(f.Enums))
	for name, values := range f.Enums {
		if len(values) == 0 {
			v.AddErrorf("enum %s has no values", name)
			continue
		}
		enums[name] = NewEnum(name, values)
	}

	s := &Schema{objects: make(map[sai.ObjectType]*ObjectInfo, len(f.ObjectTypes))}
	for i := range f.ObjectTypes {
		spec := &f.ObjectTypes[i]
		ot, err := sai.ParseObjectType(spec.Name)
		if err != nil {
			v.AddError(err.Error())
			continue
		}
		if _, dup := s.objects[ot]; dup {
			v.AddErrorf("object type %s defined twice", spec.Name)
			continue
		}
		s.objects[ot] = buildObject(v, ot, spec, enums)
	}

	if err := v.Build(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildObject(v *util.ValidationBuilder, ot sai.ObjectType, spec *ObjectTypeSpec, enums map[string]*Enum) *ObjectInfo {
	oi := &ObjectInfo{
		Type:  ot,
		byID:  make(map[sai.AttrID]*AttrMetadata, len(spec.Attributes)),
		byNm:  make(map[string]*AttrMetadata, len(spec.Attributes)),
		stats: spec.Stats,
	}

	seenStats := make(map[string]bool, len(spec.Stats))
	for _, st := range spec.Stats {
		v.Add(!seenStats[st], fmt.Sprintf("%s: stat %s listed twice", spec.Name, st))
		seenStats[st] = true
	}

	for i := range spec.Attributes {
		as := &spec.Attributes[i]
		md := buildAttr(v, ot, sai.AttrID(i), as, enums)
		if _, dup := oi.byNm[as.Name]; dup {
			v.AddErrorf("%s: attribute %s defined twice", spec.Name, as.Name)
			continue
		}
		oi.attrs = append(oi.attrs, md)
		oi.byID[md.ID] = md
		oi.byNm[md.Name] = md
	}

	// Conditions and defaults of condition targets need every attribute.
	for i := range spec.Attributes {
		as := &spec.Attributes[i]
		md, ok := oi.byNm[as.Name]
		if !ok || md.ID != sai.AttrID(i) {
			continue
		}
		for _, cs := range as.Conditions {
			target, ok := oi.byNm[cs.Attr]
			if !ok {
				v.AddError(util.NewDependencyError(as.Name, "condition attribute", cs.Attr).Error())
				continue
			}
			if target.Kind != sai.KindBool && !target.IsEnum() {
				v.AddErrorf("%s: condition attribute %s must be bool or enum", as.Name, cs.Attr)
				continue
			}
			val, err := target.Parse(cs.Value)
			if err != nil {
				v.AddErrorf("%s: condition value %q for %s: %v", as.Name, cs.Value, cs.Attr, err)
				continue
			}
			md.Conditions = append(md.Conditions, Condition{Attr: target.ID, Value: val})
		}
	}
	return oi
}

func buildAttr(v *util.ValidationBuilder, ot sai.ObjectType, id sai.AttrID, as *AttrSpec, enums map[string]*Enum) *AttrMetadata {
	md := &AttrMetadata{
		ObjectType: ot,
		ID:         id,
		Name:       as.Name,
		AllowNull:  as.AllowNull,
	}
	where := ot.String() + "/" + as.Name

	kind, err := sai.ParseValueKind(as.Kind)
	if err != nil {
		v.AddErrorf("%s: %v", where, err)
	}
	md.Kind = kind

	for _, fl := range as.Flags {
		f, ok := flagNames[fl]
		if !ok {
			v.AddErrorf("%s: unknown flag %q", where, fl)
			continue
		}
		md.Flags |= f
	}
	access := 0
	for _, f := range []AttrFlags{FlagCreateOnly, FlagCreateAndSet, FlagReadOnly} {
		if md.Flags&f != 0 {
			access++
		}
	}
	v.Add(access == 1, where+": exactly one of create_only, create_and_set, read_only is required")
	v.Add(!md.IsKey() || md.IsCreateOnly(), where+": key attributes must be create_only")
	v.Add(!md.IsMandatoryOnCreate() || !md.IsReadOnly(), where+": read_only attributes cannot be mandatory")

	if as.ACLDataKind != "" {
		dk, err := sai.ParseValueKind(as.ACLDataKind)
		if err != nil {
			v.AddErrorf("%s: acl_data_kind: %v", where, err)
		}
		md.ACLDataKind = dk
		v.Add(kind == sai.KindACLField || kind == sai.KindACLAction, where+": acl_data_kind only applies to acl kinds")
	}

	for _, name := range as.Objects {
		target, err := sai.ParseObjectType(name)
		if err != nil {
			v.AddErrorf("%s: %v", where, err)
			continue
		}
		md.AllowedObjectTypes = append(md.AllowedObjectTypes, target)
	}
	if md.CarriesObjects() {
		v.Add(len(md.AllowedObjectTypes) > 0, where+": object attributes must list allowed object types")
	} else {
		v.Add(len(md.AllowedObjectTypes) == 0, where+": objects listed on a non-object attribute")
	}

	if as.Enum != "" {
		e, ok := enums[as.Enum]
		if !ok {
			v.AddError(util.NewDependencyError(where, "enum", as.Enum).Error())
		}
		md.Enum = e
		v.Add(kind == sai.KindS32 || kind == sai.KindS32List || kind == sai.KindACLField || kind == sai.KindACLAction,
			where+": enum requires kind s32, s32_list or an acl kind")
	}

	if as.Default != "" && kind != sai.KindInvalid {
		def, err := md.Parse(as.Default)
		if err != nil {
			v.AddErrorf("%s: default: %v", where, err)
		} else {
			md.Default = def
			if s, ok := def.(sai.S32); ok && md.IsEnum() {
				v.Add(md.Enum.Contains(int32(s)), where+": default is not a legal enum value")
			}
		}
	}
	return md
}
