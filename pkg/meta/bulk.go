package meta

import (
	"context"

	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// bulkPlan tracks per-item validation results and the items to forward.
type bulkPlan struct {
	mode     sai.BulkMode
	statuses []sai.Status
	forward  []int
}

func newBulkPlan(n int, mode sai.BulkMode) *bulkPlan {
	return &bulkPlan{mode: mode, statuses: channel.Statuses(n, sai.StatusNotExecuted)}
}

// admit records the local outcome of item i. It returns false once
// stop-on-error has seen a failure and no further item may be validated.
func (p *bulkPlan) admit(i int, err error) bool {
	if err != nil {
		p.statuses[i] = sai.StatusOf(err)
		return p.mode != sai.BulkStopOnError
	}
	p.forward = append(p.forward, i)
	return true
}

// merge copies the channel's per-item statuses back to their positions.
// When the call failed as a whole, every forwarded item takes the call's
// status.
func (p *bulkPlan) merge(statuses []sai.Status, callErr error) {
	for j, i := range p.forward {
		switch {
		case callErr != nil:
			p.statuses[i] = sai.StatusOf(callErr)
		case j < len(statuses):
			p.statuses[i] = statuses[j]
		default:
			p.statuses[i] = sai.StatusFailure
		}
	}
	if p.mode != sai.BulkStopOnError {
		return
	}
	failed := false
	for i := range p.statuses {
		if failed {
			p.statuses[i] = sai.StatusNotExecuted
			continue
		}
		failed = p.statuses[i] != sai.StatusSuccess
	}
}

// succeeded reports whether item i ended in success.
func (p *bulkPlan) succeeded(i int) bool { return p.statuses[i] == sai.StatusSuccess }

// result is the overall outcome of the bulk call.
func (p *bulkPlan) result(callErr error) error {
	if callErr != nil {
		return callErr
	}
	failed := 0
	for _, s := range p.statuses {
		if s != sai.StatusSuccess {
			failed++
		}
	}
	if failed > 0 {
		return sai.Errorf(sai.StatusFailure, "%d of %d bulk items failed", failed, len(p.statuses))
	}
	return nil
}

// BulkCreate creates len(items) objects of one type on one switch. The
// returned ids are null for items that did not succeed.
func (m *Meta) BulkCreate(ctx context.Context, ot sai.ObjectType, sw sai.OID, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.OID, []sai.Status, error) {
	oids := make([]sai.OID, len(items))
	if len(items) == 0 {
		return oids, nil, sai.Errorf(sai.StatusInvalidParameter, "bulk create of %s with no items", ot)
	}
	if ot.IsEntry() || ot == sai.ObjectTypeSwitch {
		return oids, nil, sai.Errorf(sai.StatusInvalidParameter, "bulk create is not supported for %s", ot)
	}
	if _, ok := m.switches[sw]; !ok {
		return oids, nil, sai.Errorf(sai.StatusInvalidParameter, "switch %s does not exist", sw)
	}

	plan := newBulkPlan(len(items), mode)
	tuples := make([]string, len(items))
	pendingTuples := make(map[string]bool)
	for i, attrs := range items {
		err := m.validator.Validate(Request{Op: OpCreate, Type: ot, Switch: sw, Attrs: attrs})
		if err == nil {
			if tuple, ok := m.keys.Tuple(ot, sw, attrs); ok {
				if _, used := m.keys.Owner(tuple); used || pendingTuples[tuple] {
					err = sai.Errorf(sai.StatusInvalidParameter, "key attributes %s already used", tuple)
				} else {
					pendingTuples[tuple] = true
					tuples[i] = tuple
				}
			}
		}
		if !plan.admit(i, err) {
			break
		}
	}
	if len(plan.forward) == 0 {
		return oids, plan.statuses, plan.result(nil)
	}

	fwd := make([][]sai.Attribute, len(plan.forward))
	for j, i := range plan.forward {
		fwd[j] = items[i]
	}
	created, statuses, err := m.ch.BulkCreate(ctx, ot, sw, fwd, mode)
	plan.merge(statuses, err)
	if err != nil {
		util.WithObject(ot.String(), "").Errorf("channel bulk create failed: %v", err)
		return oids, plan.statuses, plan.result(err)
	}

	for j, i := range plan.forward {
		if !plan.succeeded(i) {
			continue
		}
		var oid sai.OID
		if j < len(created) {
			oid = created[j]
		}
		if err := m.checkCreatedOID(ot, sw, oid); err != nil {
			plan.statuses[i] = sai.StatusOf(unrecorded(ot, oid, err))
			continue
		}
		if err := m.insert(oid, sw, items[i]); err != nil {
			plan.statuses[i] = sai.StatusOf(unrecorded(ot, oid, err))
			continue
		}
		if tuples[i] != "" {
			m.keys.Insert(tuples[i], oid)
		}
		oids[i] = oid
	}
	return oids, plan.statuses, plan.result(nil)
}

// BulkCreateEntries creates entries of a single entry type.
func (m *Meta) BulkCreateEntries(ctx context.Context, keys []sai.Key, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	if err := checkBulkShape(keys, len(items)); err != nil {
		return nil, err
	}
	plan := newBulkPlan(len(keys), mode)
	pending := make(map[sai.Key]bool)
	for i, key := range keys {
		err := m.validateEntryCreate(key, items[i], pending)
		if err == nil {
			pending[key] = true
		}
		if !plan.admit(i, err) {
			break
		}
	}
	if len(plan.forward) == 0 {
		return plan.statuses, plan.result(nil)
	}

	fwdKeys, fwdItems := make([]sai.Key, len(plan.forward)), make([][]sai.Attribute, len(plan.forward))
	for j, i := range plan.forward {
		fwdKeys[j], fwdItems[j] = keys[i], items[i]
	}
	statuses, err := m.ch.BulkCreateEntries(ctx, fwdKeys, fwdItems, mode)
	plan.merge(statuses, err)
	if err != nil {
		util.WithObject(keys[0].ObjectType().String(), "").Errorf("channel bulk create failed: %v", err)
		return plan.statuses, plan.result(err)
	}
	for _, i := range plan.forward {
		if !plan.succeeded(i) {
			continue
		}
		if err := m.insert(keys[i], keys[i].SwitchID(), items[i]); err != nil {
			plan.statuses[i] = sai.StatusOf(unrecorded(keys[i].ObjectType(), keys[i], err))
		}
	}
	return plan.statuses, plan.result(nil)
}

// BulkRemove removes objects or entries of a single type. Under
// stop-on-error a reference held by an item accepted earlier in the call
// does not block a later item, since the later item runs only if the
// earlier one succeeded.
func (m *Meta) BulkRemove(ctx context.Context, keys []sai.Key, mode sai.BulkMode) ([]sai.Status, error) {
	if err := checkBulkShape(keys, len(keys)); err != nil {
		return nil, err
	}
	if keys[0].ObjectType() == sai.ObjectTypeSwitch {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "bulk remove is not supported for %s", sai.ObjectTypeSwitch)
	}

	plan := newBulkPlan(len(keys), mode)
	accepted := make(map[sai.Key]bool)
	var credit map[sai.Key]bool
	if mode == sai.BulkStopOnError {
		credit = accepted
	}
	objs := make([]*Object, len(keys))
	for i, key := range keys {
		o, ok := m.store.Lookup(key)
		var err error
		switch {
		case !ok || accepted[key]:
			err = sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
		default:
			err = m.checkRemovable(o, credit)
		}
		if err == nil {
			accepted[key] = true
			objs[i] = o
		}
		if !plan.admit(i, err) {
			break
		}
	}
	if len(plan.forward) == 0 {
		return plan.statuses, plan.result(nil)
	}

	fwd := make([]sai.Key, len(plan.forward))
	for j, i := range plan.forward {
		fwd[j] = keys[i]
	}
	statuses, err := m.ch.BulkRemove(ctx, fwd, mode)
	plan.merge(statuses, err)
	if err != nil {
		util.WithObject(keys[0].ObjectType().String(), "").Errorf("channel bulk remove failed: %v", err)
		return plan.statuses, plan.result(err)
	}
	for _, i := range plan.forward {
		if plan.succeeded(i) {
			m.applyRemove(objs[i])
		}
	}
	return plan.statuses, plan.result(nil)
}

// BulkSet applies one attribute per key. Later items see the values set by
// earlier accepted items on the same object.
func (m *Meta) BulkSet(ctx context.Context, keys []sai.Key, attrs []sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	if err := checkBulkShape(keys, len(attrs)); err != nil {
		return nil, err
	}

	plan := newBulkPlan(len(keys), mode)
	overlays := make(map[sai.Key]*overlay)
	objs := make([]*Object, len(keys))
	for i, key := range keys {
		o, ok := m.store.Lookup(key)
		var err error
		if !ok {
			err = sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
		} else {
			ov := overlays[key]
			if ov == nil {
				ov = &overlay{base: o, attrs: make(map[sai.AttrID]sai.Value)}
				overlays[key] = ov
			}
			err = m.validator.Validate(Request{Op: OpSet, Type: o.Type, Switch: o.Switch, Attrs: []sai.Attribute{attrs[i]}, Current: ov})
			if err == nil {
				ov.attrs[attrs[i].ID] = attrs[i].Value
				objs[i] = o
			}
		}
		if !plan.admit(i, err) {
			break
		}
	}
	if len(plan.forward) == 0 {
		return plan.statuses, plan.result(nil)
	}

	fwdKeys, fwdAttrs := make([]sai.Key, len(plan.forward)), make([]sai.Attribute, len(plan.forward))
	for j, i := range plan.forward {
		fwdKeys[j], fwdAttrs[j] = keys[i], attrs[i]
	}
	statuses, err := m.ch.BulkSet(ctx, fwdKeys, fwdAttrs, mode)
	plan.merge(statuses, err)
	if err != nil {
		util.WithObject(keys[0].ObjectType().String(), "").Errorf("channel bulk set failed: %v", err)
		return plan.statuses, plan.result(err)
	}
	for _, i := range plan.forward {
		if !plan.succeeded(i) {
			continue
		}
		if err := m.applySet(objs[i], attrs[i]); err != nil {
			plan.statuses[i] = sai.StatusOf(err)
		}
	}
	return plan.statuses, plan.result(nil)
}

// checkBulkShape rejects empty calls, mismatched lengths and mixed types.
func checkBulkShape(keys []sai.Key, n int) error {
	if len(keys) == 0 {
		return sai.Errorf(sai.StatusInvalidParameter, "bulk call with no items")
	}
	if len(keys) != n {
		return sai.Errorf(sai.StatusInvalidParameter, "bulk call with %d keys and %d attribute lists", len(keys), n)
	}
	ot := keys[0].ObjectType()
	for _, k := range keys[1:] {
		if k.ObjectType() != ot {
			return sai.Errorf(sai.StatusInvalidParameter, "bulk call mixes %s and %s", ot, k.ObjectType())
		}
	}
	return nil
}

// overlay layers values accepted earlier in a bulk set over an object's
// stored attributes.
type overlay struct {
	base  AttrReader
	attrs map[sai.AttrID]sai.Value
}

func (o *overlay) Attr(id sai.AttrID) (sai.Value, bool) {
	if v, ok := o.attrs[id]; ok {
		return v, true
	}
	return o.base.Attr(id)
}
