package sai

import (
	"fmt"
	"sort"
)

// ObjectType identifies the kind of an object.
type ObjectType int32

const (
	ObjectTypeNull                  ObjectType = 0
	ObjectTypePort                  ObjectType = 1
	ObjectTypeLag                   ObjectType = 2
	ObjectTypeVirtualRouter         ObjectType = 3
	ObjectTypeNextHop               ObjectType = 4
	ObjectTypeNextHopGroup          ObjectType = 5
	ObjectTypeRouterInterface       ObjectType = 6
	ObjectTypeACLTable              ObjectType = 7
	ObjectTypeACLEntry              ObjectType = 8
	ObjectTypeACLCounter            ObjectType = 9
	ObjectTypeACLRange              ObjectType = 10
	ObjectTypeACLTableGroup         ObjectType = 11
	ObjectTypeACLTableGroupMember   ObjectType = 12
	ObjectTypeHostif                ObjectType = 13
	ObjectTypeMirrorSession         ObjectType = 14
	ObjectTypeSamplepacket          ObjectType = 15
	ObjectTypeSTP                   ObjectType = 16
	ObjectTypeHostifTrapGroup       ObjectType = 17
	ObjectTypePolicer               ObjectType = 18
	ObjectTypeWRED                  ObjectType = 19
	ObjectTypeQosMap                ObjectType = 20
	ObjectTypeQueue                 ObjectType = 21
	ObjectTypeScheduler             ObjectType = 22
	ObjectTypeSchedulerGroup        ObjectType = 23
	ObjectTypeBufferPool            ObjectType = 24
	ObjectTypeBufferProfile         ObjectType = 25
	ObjectTypeIngressPriorityGroup  ObjectType = 26
	ObjectTypeLagMember             ObjectType = 27
	ObjectTypeHash                  ObjectType = 28
	ObjectTypeUDF                   ObjectType = 29
	ObjectTypeUDFMatch              ObjectType = 30
	ObjectTypeUDFGroup              ObjectType = 31
	ObjectTypeFdbEntry              ObjectType = 32
	ObjectTypeSwitch                ObjectType = 33
	ObjectTypeHostifTrap            ObjectType = 34
	ObjectTypeHostifTableEntry      ObjectType = 35
	ObjectTypeNeighborEntry         ObjectType = 36
	ObjectTypeRouteEntry            ObjectType = 37
	ObjectTypeVlan                  ObjectType = 38
	ObjectTypeVlanMember            ObjectType = 39
	ObjectTypeHostifPacket          ObjectType = 40
	ObjectTypeTunnelMap             ObjectType = 41
	ObjectTypeTunnel                ObjectType = 42
	ObjectTypeTunnelTermTableEntry  ObjectType = 43
	ObjectTypeFdbFlush              ObjectType = 44
	ObjectTypeNextHopGroupMember    ObjectType = 45
	ObjectTypeSTPPort               ObjectType = 46
	ObjectTypeRPFGroup              ObjectType = 47
	ObjectTypeRPFGroupMember        ObjectType = 48
	ObjectTypeL2mcGroup             ObjectType = 49
	ObjectTypeL2mcGroupMember       ObjectType = 50
	ObjectTypeIpmcGroup             ObjectType = 51
	ObjectTypeIpmcGroupMember       ObjectType = 52
	ObjectTypeL2mcEntry             ObjectType = 53
	ObjectTypeIpmcEntry             ObjectType = 54
	ObjectTypeMcastFdbEntry         ObjectType = 55
	ObjectTypeHostifUserDefinedTrap ObjectType = 56
	ObjectTypeBridge                ObjectType = 57
	ObjectTypeBridgePort            ObjectType = 58
	ObjectTypeTunnelMapEntry        ObjectType = 59
	ObjectTypeTAM                   ObjectType = 60
	ObjectTypeInsegEntry            ObjectType = 63
	ObjectTypeBfdSession            ObjectType = 69
	ObjectTypeNatEntry              ObjectType = 82
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeNull:                  "SAI_OBJECT_TYPE_NULL",
	ObjectTypePort:                  "SAI_OBJECT_TYPE_PORT",
	ObjectTypeLag:                   "SAI_OBJECT_TYPE_LAG",
	ObjectTypeVirtualRouter:         "SAI_OBJECT_TYPE_VIRTUAL_ROUTER",
	ObjectTypeNextHop:               "SAI_OBJECT_TYPE_NEXT_HOP",
	ObjectTypeNextHopGroup:          "SAI_OBJECT_TYPE_NEXT_HOP_GROUP",
	ObjectTypeRouterInterface:       "SAI_OBJECT_TYPE_ROUTER_INTERFACE",
	ObjectTypeACLTable:              "SAI_OBJECT_TYPE_ACL_TABLE",
	ObjectTypeACLEntry:              "SAI_OBJECT_TYPE_ACL_ENTRY",
	ObjectTypeACLCounter:            "SAI_OBJECT_TYPE_ACL_COUNTER",
	ObjectTypeACLRange:              "SAI_OBJECT_TYPE_ACL_RANGE",
	ObjectTypeACLTableGroup:         "SAI_OBJECT_TYPE_ACL_TABLE_GROUP",
	ObjectTypeACLTableGroupMember:   "SAI_OBJECT_TYPE_ACL_TABLE_GROUP_MEMBER",
	ObjectTypeHostif:                "SAI_OBJECT_TYPE_HOSTIF",
	ObjectTypeMirrorSession:         "SAI_OBJECT_TYPE_MIRROR_SESSION",
	ObjectTypeSamplepacket:          "SAI_OBJECT_TYPE_SAMPLEPACKET",
	ObjectTypeSTP:                   "SAI_OBJECT_TYPE_STP",
	ObjectTypeHostifTrapGroup:       "SAI_OBJECT_TYPE_HOSTIF_TRAP_GROUP",
	ObjectTypePolicer:               "SAI_OBJECT_TYPE_POLICER",
	ObjectTypeWRED:                  "SAI_OBJECT_TYPE_WRED",
	ObjectTypeQosMap:                "SAI_OBJECT_TYPE_QOS_MAP",
	ObjectTypeQueue:                 "SAI_OBJECT_TYPE_QUEUE",
	ObjectTypeScheduler:             "SAI_OBJECT_TYPE_SCHEDULER",
	ObjectTypeSchedulerGroup:        "SAI_OBJECT_TYPE_SCHEDULER_GROUP",
	ObjectTypeBufferPool:            "SAI_OBJECT_TYPE_BUFFER_POOL",
	ObjectTypeBufferProfile:         "SAI_OBJECT_TYPE_BUFFER_PROFILE",
	ObjectTypeIngressPriorityGroup:  "SAI_OBJECT_TYPE_INGRESS_PRIORITY_GROUP",
	ObjectTypeLagMember:             "SAI_OBJECT_TYPE_LAG_MEMBER",
	ObjectTypeHash:                  "SAI_OBJECT_TYPE_HASH",
	ObjectTypeUDF:                   "SAI_OBJECT_TYPE_UDF",
	ObjectTypeUDFMatch:              "SAI_OBJECT_TYPE_UDF_MATCH",
	ObjectTypeUDFGroup:              "SAI_OBJECT_TYPE_UDF_GROUP",
	ObjectTypeFdbEntry:              "SAI_OBJECT_TYPE_FDB_ENTRY",
	ObjectTypeSwitch:                "SAI_OBJECT_TYPE_SWITCH",
	ObjectTypeHostifTrap:            "SAI_OBJECT_TYPE_HOSTIF_TRAP",
	ObjectTypeHostifTableEntry:      "SAI_OBJECT_TYPE_HOSTIF_TABLE_ENTRY",
	ObjectTypeNeighborEntry:         "SAI_OBJECT_TYPE_NEIGHBOR_ENTRY",
	ObjectTypeRouteEntry:            "SAI_OBJECT_TYPE_ROUTE_ENTRY",
	ObjectTypeVlan:                  "SAI_OBJECT_TYPE_VLAN",
	ObjectTypeVlanMember:            "SAI_OBJECT_TYPE_VLAN_MEMBER",
	ObjectTypeHostifPacket:          "SAI_OBJECT_TYPE_HOSTIF_PACKET",
	ObjectTypeTunnelMap:             "SAI_OBJECT_TYPE_TUNNEL_MAP",
	ObjectTypeTunnel:                "SAI_OBJECT_TYPE_TUNNEL",
	ObjectTypeTunnelTermTableEntry:  "SAI_OBJECT_TYPE_TUNNEL_TERM_TABLE_ENTRY",
	ObjectTypeFdbFlush:              "SAI_OBJECT_TYPE_FDB_FLUSH",
	ObjectTypeNextHopGroupMember:    "SAI_OBJECT_TYPE_NEXT_HOP_GROUP_MEMBER",
	ObjectTypeSTPPort:               "SAI_OBJECT_TYPE_STP_PORT",
	ObjectTypeRPFGroup:              "SAI_OBJECT_TYPE_RPF_GROUP",
	ObjectTypeRPFGroupMember:        "SAI_OBJECT_TYPE_RPF_GROUP_MEMBER",
	ObjectTypeL2mcGroup:             "SAI_OBJECT_TYPE_L2MC_GROUP",
	ObjectTypeL2mcGroupMember:       "SAI_OBJECT_TYPE_L2MC_GROUP_MEMBER",
	ObjectTypeIpmcGroup:             "SAI_OBJECT_TYPE_IPMC_GROUP",
	ObjectTypeIpmcGroupMember:       "SAI_OBJECT_TYPE_IPMC_GROUP_MEMBER",
	ObjectTypeL2mcEntry:             "SAI_OBJECT_TYPE_L2MC_ENTRY",
	ObjectTypeIpmcEntry:             "SAI_OBJECT_TYPE_IPMC_ENTRY",
	ObjectTypeMcastFdbEntry:         "SAI_OBJECT_TYPE_MCAST_FDB_ENTRY",
	ObjectTypeHostifUserDefinedTrap: "SAI_OBJECT_TYPE_HOSTIF_USER_DEFINED_TRAP",
	ObjectTypeBridge:                "SAI_OBJECT_TYPE_BRIDGE",
	ObjectTypeBridgePort:            "SAI_OBJECT_TYPE_BRIDGE_PORT",
	ObjectTypeTunnelMapEntry:        "SAI_OBJECT_TYPE_TUNNEL_MAP_ENTRY",
	ObjectTypeTAM:                   "SAI_OBJECT_TYPE_TAM",
	ObjectTypeInsegEntry:            "SAI_OBJECT_TYPE_INSEG_ENTRY",
	ObjectTypeBfdSession:            "SAI_OBJECT_TYPE_BFD_SESSION",
	ObjectTypeNatEntry:              "SAI_OBJECT_TYPE_NAT_ENTRY",
}

var objectTypesByName = func() map[string]ObjectType {
	m := make(map[string]ObjectType, len(objectTypeNames))
	for ot, name := range objectTypeNames {
		m[name] = ot
	}
	return m
}()

// entryTypes are object types keyed by a structured entry instead of an OID.
var entryTypes = map[ObjectType]bool{
	ObjectTypeFdbEntry:      true,
	ObjectTypeNeighborEntry: true,
	ObjectTypeRouteEntry:    true,
	ObjectTypeL2mcEntry:     true,
	ObjectTypeIpmcEntry:     true,
	ObjectTypeMcastFdbEntry: true,
	ObjectTypeInsegEntry:    true,
	ObjectTypeNatEntry:      true,
}

// IsValid reports whether ot is a known, non-null object type.
func (ot ObjectType) IsValid() bool {
	_, ok := objectTypeNames[ot]
	return ok && ot != ObjectTypeNull
}

// IsEntry reports whether objects of this type are identified by a
// structured entry key.
func (ot ObjectType) IsEntry() bool { return entryTypes[ot] }

func (ot ObjectType) String() string {
	if name, ok := objectTypeNames[ot]; ok {
		return name
	}
	return fmt.Sprintf("SAI_OBJECT_TYPE_%d", int32(ot))
}

// ParseObjectType resolves a "SAI_OBJECT_TYPE_*" name.
func ParseObjectType(name string) (ObjectType, error) {
	ot, ok := objectTypesByName[name]
	if !ok || ot == ObjectTypeNull {
		return ObjectTypeNull, fmt.Errorf("unknown object type %q", name)
	}
	return ot, nil
}

// ObjectTypes returns every known non-null object type in numeric order.
func ObjectTypes() []ObjectType {
	types := make([]ObjectType, 0, len(objectTypeNames)-1)
	for ot := range objectTypeNames {
		if ot != ObjectTypeNull {
			types = append(types, ot)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
