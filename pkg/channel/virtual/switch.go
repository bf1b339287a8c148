package virtual

import (
	"github.com/newtron-network/saimeta/pkg/sai"
)

// Port attributes listing objects created together with a port.
var portObjectLists = []string{
	"SAI_PORT_ATTR_QOS_QUEUE_LIST",
	"SAI_PORT_ATTR_QOS_SCHEDULER_GROUP_LIST",
	"SAI_PORT_ATTR_INGRESS_PRIORITY_GROUP_LIST",
}

const (
	portTypeLogical = 0
	portTypeCPU     = 1
	operStatusUp    = 1
	operStatusDown  = 2
	bridgeType1Q    = 0
	queueTypeAll    = 0
	defaultSpeed    = 100000
	lanesPerPort    = 4
)

// createSwitch allocates a switch id and the objects a switch brings up
// on its own.
func (c *Channel) createSwitch(attrs []sai.Attribute) (sai.OID, error) {
	if c.switches > 0xff {
		return sai.NullOID, sai.Errorf(sai.StatusFailure, "no switch index left")
	}
	sw := sai.NewSwitchOID(uint8(c.switches), 0)
	c.switches++
	c.next[sw] = 0

	o := &object{sw: sw, attrs: attrMap(attrs)}
	c.objects[sw] = o

	cpu := c.newPort(sw, portTypeCPU, operStatusUp, nil)
	ports := make([]sai.OID, c.cfg.ports)
	for i := range ports {
		lanes := make([]uint32, lanesPerPort)
		for l := range lanes {
			lanes[l] = uint32(i*lanesPerPort + l)
		}
		ports[i] = c.newPort(sw, portTypeLogical, operStatusDown, lanes)
	}
	vr := c.newObject(sw, sai.ObjectTypeVirtualRouter)
	bridge := c.newObject(sw, sai.ObjectTypeBridge)
	c.setByName(bridge, sai.ObjectTypeBridge, "SAI_BRIDGE_ATTR_TYPE", sai.S32(bridgeType1Q))
	hash := c.newObject(sw, sai.ObjectTypeHash)

	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_OPER_STATUS", sai.S32(sai.SwitchOperStatusUp))
	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_PORT_NUMBER", sai.U32(len(ports)))
	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_PORT_LIST", sai.NewList(ports...))
	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_CPU_PORT", cpu)
	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_DEFAULT_VIRTUAL_ROUTER_ID", vr)
	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_DEFAULT_1Q_BRIDGE_ID", bridge)
	c.setByName(sw, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_ECMP_HASH", hash)
	return sw, nil
}

// newPort creates a port with its queues, scheduler groups and ingress
// priority groups.
func (c *Channel) newPort(sw sai.OID, portType, operStatus int32, lanes []uint32) sai.OID {
	port := c.newObject(sw, sai.ObjectTypePort)
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_TYPE", sai.S32(portType))
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_OPER_STATUS", sai.S32(operStatus))
	if lanes != nil {
		c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_HW_LANE_LIST", sai.NewList(lanes...))
		c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_SPEED", sai.U32(defaultSpeed))
	}

	groups := make([]sai.OID, c.cfg.schedulerGroups)
	for i := range groups {
		sg := c.newObject(sw, sai.ObjectTypeSchedulerGroup)
		c.setByName(sg, sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_PORT_ID", port)
		c.setByName(sg, sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_LEVEL", sai.U8(0))
		c.setByName(sg, sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_MAX_CHILDS", sai.U8(c.cfg.queues))
		c.setByName(sg, sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_PARENT_NODE", port)
		groups[i] = sg
	}
	queues := make([]sai.OID, c.cfg.queues)
	for i := range queues {
		q := c.newObject(sw, sai.ObjectTypeQueue)
		c.setByName(q, sai.ObjectTypeQueue, "SAI_QUEUE_ATTR_TYPE", sai.S32(queueTypeAll))
		c.setByName(q, sai.ObjectTypeQueue, "SAI_QUEUE_ATTR_PORT", port)
		c.setByName(q, sai.ObjectTypeQueue, "SAI_QUEUE_ATTR_INDEX", sai.U8(i))
		parent := port
		if len(groups) > 0 {
			parent = groups[0]
		}
		c.setByName(q, sai.ObjectTypeQueue, "SAI_QUEUE_ATTR_PARENT_SCHEDULER_NODE", parent)
		queues[i] = q
	}
	ipgs := make([]sai.OID, c.cfg.priorityGroups)
	for i := range ipgs {
		pg := c.newObject(sw, sai.ObjectTypeIngressPriorityGroup)
		c.setByName(pg, sai.ObjectTypeIngressPriorityGroup, "SAI_INGRESS_PRIORITY_GROUP_ATTR_PORT", port)
		c.setByName(pg, sai.ObjectTypeIngressPriorityGroup, "SAI_INGRESS_PRIORITY_GROUP_ATTR_INDEX", sai.U8(i))
		ipgs[i] = pg
	}

	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_QOS_NUMBER_OF_QUEUES", sai.U32(len(queues)))
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_QOS_QUEUE_LIST", sai.NewList(queues...))
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_QOS_NUMBER_OF_SCHEDULER_GROUPS", sai.U32(len(groups)))
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_QOS_SCHEDULER_GROUP_LIST", sai.NewList(groups...))
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_NUMBER_OF_INGRESS_PRIORITY_GROUPS", sai.U32(len(ipgs)))
	c.setByName(port, sai.ObjectTypePort, "SAI_PORT_ATTR_INGRESS_PRIORITY_GROUP_LIST", sai.NewList(ipgs...))
	return port
}

func (c *Channel) newObject(sw sai.OID, ot sai.ObjectType) sai.OID {
	oid := c.allocate(ot, sw)
	c.objects[oid] = &object{sw: sw, attrs: make(map[sai.AttrID]sai.Value)}
	return oid
}

// setByName stores a value when the schema knows the attribute.
func (c *Channel) setByName(oid sai.OID, ot sai.ObjectType, name string, v sai.Value) {
	md, ok := c.schema.AttrByName(ot, name)
	if !ok {
		return
	}
	c.objects[oid].attrs[md.ID] = v
}
