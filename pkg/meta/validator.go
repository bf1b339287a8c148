package meta

import (
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

// Op is the operation kind being validated.
type Op int

const (
	OpCreate Op = iota
	OpRemove
	OpSet
	OpGet
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpSet:
		return "set"
	case OpGet:
		return "get"
	}
	return "unknown"
}

const (
	// MaxListCount bounds the declared count of any list value.
	MaxListCount = 0x1000
	// MaxChardataLen is the longest accepted chardata value.
	MaxChardataLen = 32
)

// AttrReader exposes the current attributes of an existing object.
type AttrReader interface {
	Attr(id sai.AttrID) (sai.Value, bool)
}

// Request is one attribute list to validate.
type Request struct {
	Op     Op
	Type   sai.ObjectType
	Switch sai.OID
	Attrs  []sai.Attribute

	// Current is the object's state; required for OpSet.
	Current AttrReader
}

// Validator checks attribute lists against the schema. It never mutates
// anything.
type Validator struct {
	schema  *schema.Schema
	resolve ObjectResolver
}

// NewValidator returns a validator resolving references through resolve.
func NewValidator(s *schema.Schema, resolve ObjectResolver) *Validator {
	return &Validator{schema: s, resolve: resolve}
}

// Validate returns nil or the first violation. Checks run in a fixed
// order: duplicates, unknown ids, operation legality, mandatory presence,
// value shape, enum domain, conditions, object references.
func (v *Validator) Validate(req Request) error {
	oi, ok := v.schema.Object(req.Type)
	if !ok {
		return sai.Errorf(sai.StatusInvalidParameter, "object type %s is not described by the schema", req.Type)
	}

	mds, err := v.resolveAttrs(oi, req.Type, req.Attrs)
	if err != nil {
		return err
	}

	for _, md := range mds {
		if req.Op == OpGet {
			break
		}
		if md.IsReadOnly() {
			return sai.Errorf(sai.StatusAttributeNotSupported, "%s is read-only", md.Name)
		}
		if req.Op == OpSet && (md.IsCreateOnly() || md.IsKey()) {
			return sai.Errorf(sai.StatusAttributeNotSupported, "%s is create-only", md.Name)
		}
		if req.Op == OpCreate && req.Type == sai.ObjectTypeSwitch && md.CarriesObjects() {
			return sai.Errorf(sai.StatusInvalidParameter, "%s: object id attributes are not allowed on switch create", md.Name)
		}
	}
	if req.Op == OpGet {
		if len(req.Attrs) == 0 {
			return sai.Errorf(sai.StatusInvalidParameter, "get of %s requires at least one attribute", req.Type)
		}
		return nil
	}

	if req.Op == OpCreate {
		for _, md := range oi.Attrs() {
			if md.IsMandatoryOnCreate() && !md.IsConditional() {
				if _, ok := findAttr(req.Attrs, md.ID); !ok {
					return sai.Errorf(sai.StatusMissingMandatoryAttribute, "%s", md.Name)
				}
			}
		}
	}

	for i, a := range req.Attrs {
		if err := checkValue(mds[i], a.Value); err != nil {
			return err
		}
	}

	for i, a := range req.Attrs {
		if err := checkEnum(mds[i], a.Value); err != nil {
			return err
		}
	}

	if err := v.checkConditions(oi, mds, req); err != nil {
		return err
	}

	for i, a := range req.Attrs {
		if err := v.checkObjects(mds[i], a.Value, req.Switch); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGet checks the attribute ids of a get request.
func (v *Validator) ValidateGet(ot sai.ObjectType, ids []sai.AttrID) error {
	attrs := make([]sai.Attribute, len(ids))
	for i, id := range ids {
		attrs[i] = sai.Attribute{ID: id}
	}
	return v.Validate(Request{Op: OpGet, Type: ot, Attrs: attrs})
}

func (v *Validator) resolveAttrs(oi *schema.ObjectInfo, ot sai.ObjectType, attrs []sai.Attribute) ([]*schema.AttrMetadata, error) {
	seen := make(map[sai.AttrID]bool, len(attrs))
	for _, a := range attrs {
		if seen[a.ID] {
			return nil, sai.Errorf(sai.StatusDuplicateAttribute, "%s", v.schema.AttrName(ot, a.ID))
		}
		seen[a.ID] = true
	}
	mds := make([]*schema.AttrMetadata, len(attrs))
	for i, a := range attrs {
		md, ok := oi.Attr(a.ID)
		if !ok {
			return nil, sai.Errorf(sai.StatusUnknownAttribute, "%s attribute %d", ot, a.ID)
		}
		mds[i] = md
	}
	return mds, nil
}

// checkConditions enforces conditional attributes. A supplied conditional
// attribute needs one of its conditions to hold; a conditional mandatory
// attribute whose condition holds must be supplied on create.
func (v *Validator) checkConditions(oi *schema.ObjectInfo, mds []*schema.AttrMetadata, req Request) error {
	for _, md := range mds {
		if md.IsConditional() && !conditionHolds(oi, md, req) {
			return sai.Errorf(sai.StatusInvalidParameter, "%s supplied but none of its conditions hold", md.Name)
		}
	}
	if req.Op != OpCreate {
		return nil
	}
	for _, md := range oi.Attrs() {
		if !md.IsMandatoryOnCreate() || !md.IsConditional() {
			continue
		}
		if _, ok := findAttr(req.Attrs, md.ID); ok {
			continue
		}
		if conditionHolds(oi, md, req) {
			return sai.Errorf(sai.StatusMissingMandatoryAttribute, "%s (condition met)", md.Name)
		}
	}
	return nil
}

func conditionHolds(oi *schema.ObjectInfo, md *schema.AttrMetadata, req Request) bool {
	for _, c := range md.Conditions {
		val, ok := conditionValue(oi, c.Attr, req)
		if ok && val == c.Value {
			return true
		}
	}
	return false
}

// conditionValue reads a condition attribute from the request (create) or
// the object's current state (set), falling back to the schema default.
func conditionValue(oi *schema.ObjectInfo, id sai.AttrID, req Request) (sai.Value, bool) {
	if req.Op == OpCreate {
		if val, ok := findAttr(req.Attrs, id); ok {
			return val, true
		}
	} else if req.Current != nil {
		if val, ok := req.Current.Attr(id); ok {
			return val, true
		}
	}
	if md, ok := oi.Attr(id); ok && md.Default != nil {
		return md.Default, true
	}
	return nil, false
}

func (v *Validator) checkObjects(md *schema.AttrMetadata, val sai.Value, sw sai.OID) error {
	if !md.CarriesObjects() {
		return nil
	}
	check := func(oid sai.OID) error {
		if oid.IsNull() {
			if md.AllowNull {
				return nil
			}
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: null object id not allowed", md.Name)
		}
		ot, ok := v.resolve.ResolveObject(oid)
		if !ok {
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s does not exist", md.Name, oid)
		}
		if !md.Allows(ot) {
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s has type %s, which is not allowed", md.Name, oid, ot)
		}
		if oid.SwitchID() != sw {
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s is not on switch %s", md.Name, oid, sw)
		}
		return nil
	}
	checkList := func(l sai.ObjectList) error {
		seen := make(map[sai.OID]bool, len(l.Items))
		for _, oid := range l.Items {
			if !oid.IsNull() && seen[oid] {
				return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s listed twice", md.Name, oid)
			}
			seen[oid] = true
			if err := check(oid); err != nil {
				return err
			}
		}
		return nil
	}
	visit := func(inner sai.Value) error {
		switch x := inner.(type) {
		case sai.OID:
			return check(x)
		case sai.ObjectList:
			return checkList(x)
		}
		return nil
	}

	switch x := val.(type) {
	case sai.ACLField:
		if !x.Enable {
			return nil
		}
		return visit(x.Data)
	case sai.ACLAction:
		if !x.Enable {
			return nil
		}
		return visit(x.Parameter)
	}
	return visit(val)
}
