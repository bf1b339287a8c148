package meta

import (
	"errors"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

// checkValue verifies that val has the declared kind and a consistent shape.
func checkValue(md *schema.AttrMetadata, val sai.Value) error {
	if val == nil {
		return sai.Errorf(sai.StatusInvalidParameter, "%s: missing value", md.Name)
	}
	if val.Kind() != md.Kind {
		return sai.Errorf(sai.StatusInvalidParameter, "%s: value kind %s, want %s", md.Name, val.Kind(), md.Kind)
	}
	switch x := val.(type) {
	case sai.ACLField:
		if !x.Enable {
			return nil
		}
		if err := checkInner(md, "data", x.Data); err != nil {
			return err
		}
		if x.Mask == nil {
			return nil
		}
		if md.ACLDataKind.IsObject() {
			return sai.Errorf(sai.StatusInvalidParameter, "%s: object data takes no mask", md.Name)
		}
		return checkInner(md, "mask", x.Mask)
	case sai.ACLAction:
		if !x.Enable {
			return nil
		}
		if md.ACLDataKind == sai.KindInvalid {
			if x.Parameter != nil {
				return sai.Errorf(sai.StatusInvalidParameter, "%s: action takes no parameter", md.Name)
			}
			return nil
		}
		return checkInner(md, "parameter", x.Parameter)
	}
	if err := checkShape(val); err != nil {
		return sai.Errorf(sai.StatusInvalidParameter, "%s: %v", md.Name, err)
	}
	return nil
}

func checkInner(md *schema.AttrMetadata, what string, val sai.Value) error {
	if val == nil {
		return sai.Errorf(sai.StatusInvalidParameter, "%s: enabled without %s", md.Name, what)
	}
	if val.Kind() != md.ACLDataKind {
		return sai.Errorf(sai.StatusInvalidParameter, "%s: %s kind %s, want %s", md.Name, what, val.Kind(), md.ACLDataKind)
	}
	if err := checkShape(val); err != nil {
		return sai.Errorf(sai.StatusInvalidParameter, "%s: %s: %v", md.Name, what, err)
	}
	return nil
}

// checkShape verifies list counts, range order, address validity and
// chardata content.
func checkShape(val sai.Value) error {
	switch x := val.(type) {
	case sai.Chardata:
		if len(x) > MaxChardataLen {
			return errors.New("chardata too long")
		}
		for i := 0; i < len(x); i++ {
			if x[i] < 0x20 || x[i] > 0x7e {
				return errors.New("chardata is not printable")
			}
		}
	case sai.IPAddress:
		if !x.IsValid() {
			return errors.New("invalid ip address")
		}
	case sai.IPPrefix:
		if !x.IsValid() {
			return errors.New("invalid ip prefix")
		}
	case sai.U32Range:
		if x.Min > x.Max {
			return errors.New("range min exceeds max")
		}
	case sai.S32Range:
		if x.Min > x.Max {
			return errors.New("range min exceeds max")
		}
	case sai.ObjectList:
		return checkList(x)
	case sai.U8List:
		return checkList(x)
	case sai.S8List:
		return checkList(x)
	case sai.U32List:
		return checkList(x)
	case sai.S32List:
		return checkList(x)
	case sai.IPAddressList:
		if err := checkList(x); err != nil {
			return err
		}
		for _, a := range x.Items {
			if !a.IsValid() {
				return errors.New("invalid ip address in list")
			}
		}
	}
	return nil
}

func checkList[T comparable](l sai.List[T]) error {
	switch {
	case l.Count > MaxListCount:
		return errors.New("list count exceeds limit")
	case l.Count == 0 && l.Items != nil:
		return errors.New("empty list carries items")
	case l.Count > 0 && l.Items == nil:
		return errors.New("list count set without items")
	case int(l.Count) != len(l.Items):
		return errors.New("list count does not match items")
	}
	return nil
}

// checkEnum verifies enum and enum list values against the legal set.
func checkEnum(md *schema.AttrMetadata, val sai.Value) error {
	if md.Enum == nil {
		return nil
	}
	bad := func(v int32) error {
		return sai.Errorf(sai.StatusInvalidEnumValue, "%s: %d is not in %s", md.Name, v, md.Enum.Name)
	}
	var inner sai.Value
	switch x := val.(type) {
	case sai.S32:
		inner = x
	case sai.S32List:
		for _, v := range x.Items {
			if !md.Enum.Contains(v) {
				return bad(v)
			}
		}
		return nil
	case sai.ACLField:
		if x.Enable {
			inner = x.Data
		}
	case sai.ACLAction:
		if x.Enable {
			inner = x.Parameter
		}
	}
	if s, ok := inner.(sai.S32); ok && !md.Enum.Contains(int32(s)) {
		return bad(int32(s))
	}
	return nil
}
