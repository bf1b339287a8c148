package sai

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// EnumNames maps enum values to names and back.
type EnumNames interface {
	EnumName(v int32) (string, bool)
	EnumValue(name string) (int32, bool)
}

// ParseOptions carries the metadata needed to parse a value.
type ParseOptions struct {
	Enum        EnumNames
	ACLDataKind ValueKind
}

// FormatValue renders v in the text form used by the ASIC database. Enum
// values are written by name when enum is non-nil.
func FormatValue(v Value, enum EnumNames) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Chardata:
		return string(val)
	case U8:
		return strconv.FormatUint(uint64(val), 10)
	case S8:
		return strconv.FormatInt(int64(val), 10)
	case U16:
		return strconv.FormatUint(uint64(val), 10)
	case S16:
		return strconv.FormatInt(int64(val), 10)
	case U32:
		return strconv.FormatUint(uint64(val), 10)
	case S32:
		return formatEnum(int32(val), enum)
	case U64:
		return strconv.FormatUint(uint64(val), 10)
	case S64:
		return strconv.FormatInt(int64(val), 10)
	case MAC:
		return val.String()
	case IPAddress:
		return val.Addr.String()
	case IPPrefix:
		return val.Prefix.String()
	case OID:
		return val.String()
	case ObjectList:
		return formatList(val, func(o OID) string { return o.String() })
	case U8List:
		return formatList(val, func(n uint8) string { return strconv.FormatUint(uint64(n), 10) })
	case S8List:
		return formatList(val, func(n int8) string { return strconv.FormatInt(int64(n), 10) })
	case U32List:
		return formatList(val, func(n uint32) string { return strconv.FormatUint(uint64(n), 10) })
	case S32List:
		return formatList(val, func(n int32) string { return formatEnum(n, enum) })
	case IPAddressList:
		return formatList(val, func(a IPAddress) string { return a.Addr.String() })
	case U32Range:
		return fmt.Sprintf("%d,%d", val.Min, val.Max)
	case S32Range:
		return fmt.Sprintf("%d,%d", val.Min, val.Max)
	case ACLField:
		if !val.Enable {
			return "disabled"
		}
		s := FormatValue(val.Data, enum)
		if val.Mask != nil {
			s += "&mask:" + FormatValue(val.Mask, nil)
		}
		return s
	case ACLAction:
		if !val.Enable {
			return "disabled"
		}
		if val.Parameter == nil {
			return "enabled"
		}
		return FormatValue(val.Parameter, enum)
	case Pointer:
		if val.Handler == nil {
			return "null"
		}
		return "ptr"
	}
	return fmt.Sprintf("%v", v)
}

func formatEnum(v int32, enum EnumNames) string {
	if enum != nil {
		if name, ok := enum.EnumName(v); ok {
			return name
		}
	}
	return strconv.FormatInt(int64(v), 10)
}

func formatList[T comparable](l List[T], item func(T) string) string {
	if l.Count == 0 || l.Items == nil {
		return "0:null"
	}
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = item(it)
	}
	return strconv.FormatUint(uint64(l.Count), 10) + ":" + strings.Join(parts, ",")
}

// ParseValue parses the text form produced by FormatValue.
func ParseValue(kind ValueKind, s string, opts ParseOptions) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", s)
		}
		return Bool(b), nil
	case KindChardata:
		return Chardata(s), nil
	case KindU8:
		n, err := strconv.ParseUint(s, 10, 8)
		return U8(n), wrapNum(s, err)
	case KindS8:
		n, err := strconv.ParseInt(s, 10, 8)
		return S8(n), wrapNum(s, err)
	case KindU16:
		n, err := strconv.ParseUint(s, 10, 16)
		return U16(n), wrapNum(s, err)
	case KindS16:
		n, err := strconv.ParseInt(s, 10, 16)
		return S16(n), wrapNum(s, err)
	case KindU32:
		n, err := strconv.ParseUint(s, 10, 32)
		return U32(n), wrapNum(s, err)
	case KindS32:
		n, err := parseEnum(s, opts.Enum)
		return S32(n), err
	case KindU64:
		n, err := strconv.ParseUint(s, 10, 64)
		return U64(n), wrapNum(s, err)
	case KindS64:
		n, err := strconv.ParseInt(s, 10, 64)
		return S64(n), wrapNum(s, err)
	case KindMAC:
		return ParseMAC(s)
	case KindIPAddress:
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid ip address %q", s)
		}
		return IPAddress{a}, nil
	case KindIPPrefix:
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("invalid ip prefix %q", s)
		}
		return IPPrefix{p}, nil
	case KindObjectID:
		if s == "null" {
			return NullOID, nil
		}
		return ParseOID(s)
	case KindObjectList:
		return parseList(s, func(item string) (OID, error) { return ParseOID(item) })
	case KindU8List:
		return parseList(s, func(item string) (uint8, error) {
			n, err := strconv.ParseUint(item, 10, 8)
			return uint8(n), wrapNum(item, err)
		})
	case KindS8List:
		return parseList(s, func(item string) (int8, error) {
			n, err := strconv.ParseInt(item, 10, 8)
			return int8(n), wrapNum(item, err)
		})
	case KindU32List:
		return parseList(s, func(item string) (uint32, error) {
			n, err := strconv.ParseUint(item, 10, 32)
			return uint32(n), wrapNum(item, err)
		})
	case KindS32List:
		return parseList(s, func(item string) (int32, error) { return parseEnum(item, opts.Enum) })
	case KindIPAddressList:
		return parseList(s, func(item string) (IPAddress, error) {
			a, err := netip.ParseAddr(item)
			if err != nil {
				return IPAddress{}, fmt.Errorf("invalid ip address %q", item)
			}
			return IPAddress{a}, nil
		})
	case KindU32Range:
		lo, hi, err := splitRange(s)
		if err != nil {
			return nil, err
		}
		from, err1 := strconv.ParseUint(lo, 10, 32)
		to, err2 := strconv.ParseUint(hi, 10, 32)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid range %q", s)
		}
		return U32Range{Min: uint32(from), Max: uint32(to)}, nil
	case KindS32Range:
		lo, hi, err := splitRange(s)
		if err != nil {
			return nil, err
		}
		from, err1 := strconv.ParseInt(lo, 10, 32)
		to, err2 := strconv.ParseInt(hi, 10, 32)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid range %q", s)
		}
		return S32Range{Min: int32(from), Max: int32(to)}, nil
	case KindACLField:
		if s == "disabled" {
			return ACLField{}, nil
		}
		dataText, maskText, hasMask := strings.Cut(s, "&mask:")
		data, err := ParseValue(opts.ACLDataKind, dataText, ParseOptions{Enum: opts.Enum})
		if err != nil {
			return nil, fmt.Errorf("acl field data: %w", err)
		}
		field := ACLField{Enable: true, Data: data}
		if hasMask {
			mask, err := ParseValue(opts.ACLDataKind, maskText, ParseOptions{})
			if err != nil {
				return nil, fmt.Errorf("acl field mask: %w", err)
			}
			field.Mask = mask
		}
		return field, nil
	case KindACLAction:
		switch s {
		case "disabled":
			return ACLAction{}, nil
		case "enabled":
			return ACLAction{Enable: true}, nil
		}
		param, err := ParseValue(opts.ACLDataKind, s, ParseOptions{Enum: opts.Enum})
		if err != nil {
			return nil, fmt.Errorf("acl action parameter: %w", err)
		}
		return ACLAction{Enable: true, Parameter: param}, nil
	case KindPointer:
		// Handlers do not survive serialization.
		return Pointer{}, nil
	}
	return nil, fmt.Errorf("cannot parse value of kind %s", kind)
}

func wrapNum(s string, err error) error {
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	return nil
}

func parseEnum(s string, enum EnumNames) (int32, error) {
	if enum != nil {
		if v, ok := enum.EnumValue(s); ok {
			return v, nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid enum value %q", s)
	}
	return int32(n), nil
}

func parseList[T comparable](s string, item func(string) (T, error)) (Value, error) {
	countText, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid list %q: missing count", s)
	}
	count, err := strconv.ParseUint(countText, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid list count in %q", s)
	}
	if count == 0 {
		if rest != "null" && rest != "" {
			return nil, fmt.Errorf("invalid list %q: zero count with items", s)
		}
		return List[T]{}, nil
	}
	parts := strings.Split(rest, ",")
	if uint64(len(parts)) != count {
		return nil, fmt.Errorf("invalid list %q: count %d but %d items", s, count, len(parts))
	}
	items := make([]T, len(parts))
	for i, p := range parts {
		if items[i], err = item(p); err != nil {
			return nil, err
		}
	}
	return List[T]{Count: uint32(count), Items: items}, nil
}

func splitRange(s string) (string, string, error) {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return "", "", fmt.Errorf("invalid range %q", s)
	}
	return lo, hi, nil
}
