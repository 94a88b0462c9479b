package models

import (
	"sort"

	"github.com/equitrack/partnership-api/log"
)

// The permission matrix is declared, not computed. Each document type
// registers one table keyed by (role, status, field); cells carry a base
// policy plus request-time conditions. A cell's effective truth is the base
// value AND all condition results.

// FieldPolicy is one cell's resolved value for a field
type FieldPolicy struct {
	View     bool
	Edit     bool
	Required bool
}

// PermContext carries the request-time facts that cell conditions consult
type PermContext struct {
	UserID          string
	InAmendment     bool
	UnicefCourt     bool
	ContingencyPD   bool
	SignedByUnicef  bool
	SignedByPartner bool
	IsFocalPoint    bool
}

type condition func(PermContext) bool

func condNotInAmendment(p PermContext) bool { return !p.InAmendment }
func condUnicefCourt(p PermContext) bool    { return p.UnicefCourt }
func condPartnerCourt(p PermContext) bool   { return !p.UnicefCourt }
func condIsFocalPoint(p PermContext) bool   { return p.IsFocalPoint }
func condNotFullySigned(p PermContext) bool { return !p.SignedByUnicef || !p.SignedByPartner }

type cellKey struct {
	role   Role
	status string
	field  string
}

type permCell struct {
	policy     FieldPolicy
	conditions []condition
}

// fieldRule is one compact declaration expanded into cells at registration.
// Empty selectors match everything the table declares. Later rules win.
type fieldRule struct {
	statuses   []string
	roles      []Role
	fields     []string
	edit       *bool
	required   *bool
	view       *bool
	conditions []condition
}

type permissionTable struct {
	documentType string
	statuses     []string
	fields       []string
	rolePriority []Role // highest first
	defaults     FieldPolicy
	rules        []fieldRule

	cells map[cellKey]permCell
}

var permissionTables = map[string]*permissionTable{}

// registerPermissionTables expands every document table's rule declarations
// into concrete cells. Called once from the models init.
func registerPermissionTables() {
	for _, t := range []*permissionTable{
		agreementPermissions(),
		interventionPermissions(),
		engagementPermissions(),
	} {
		t.build()
		permissionTables[t.documentType] = t
	}
}

func (t *permissionTable) build() {
	t.cells = make(map[cellKey]permCell, len(t.rolePriority)*len(t.statuses)*len(t.fields))
	for _, role := range t.rolePriority {
		for _, status := range t.statuses {
			for _, field := range t.fields {
				cell := permCell{policy: t.defaults}
				for _, rule := range t.rules {
					if rule.matches(role, status, field) {
						cell = rule.apply(cell)
					}
				}
				t.cells[cellKey{role, status, field}] = cell
			}
		}
	}
}

func (r *fieldRule) matches(role Role, status, field string) bool {
	return matchRole(r.roles, role) && matchString(r.statuses, status) && matchString(r.fields, field)
}

func matchRole(list []Role, want Role) bool {
	if len(list) == 0 {
		return true
	}
	for _, r := range list {
		if r == want {
			return true
		}
	}
	return false
}

func matchString(list []string, want string) bool {
	if len(list) == 0 {
		return true
	}
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func (r *fieldRule) apply(cell permCell) permCell {
	if r.edit != nil {
		cell.policy.Edit = *r.edit
	}
	if r.required != nil {
		cell.policy.Required = *r.required
	}
	if r.view != nil {
		cell.policy.View = *r.view
	}
	if len(r.conditions) > 0 {
		cell.conditions = append(cell.conditions, r.conditions...)
	}
	return cell
}

// PermissionMask is the resolved field → policy map for one (document, user)
type PermissionMask map[string]FieldPolicy

// observerMask is the failure mode for unknown roles: everything visible,
// nothing editable or required.
func (t *permissionTable) observerMask() PermissionMask {
	mask := make(PermissionMask, len(t.fields))
	for _, field := range t.fields {
		mask[field] = FieldPolicy{View: true}
	}
	return mask
}

// resolveRole picks the single highest-priority role the user holds for this
// document type. Second return is false when none match.
func (t *permissionTable) resolveRole(roles []Role) (Role, bool) {
	for _, candidate := range t.rolePriority {
		for _, held := range roles {
			if candidate == held {
				return candidate, true
			}
		}
	}
	return "", false
}

func (t *permissionTable) mask(status string, roles []Role, pctx PermContext) PermissionMask {
	role, ok := t.resolveRole(roles)
	if !ok {
		return t.observerMask()
	}

	mask := make(PermissionMask, len(t.fields))
	for _, field := range t.fields {
		cell, ok := t.cells[cellKey{role, status, field}]
		if !ok {
			mask[field] = FieldPolicy{View: true}
			continue
		}

		policy := cell.policy
		for _, cond := range cell.conditions {
			if !cond(pctx) {
				policy.Edit = false
				policy.Required = false
				break
			}
		}
		mask[field] = policy
	}
	return mask
}

// PermissionMaskFor evaluates the matrix for one document type. It is pure:
// the same inputs always yield the same mask.
func PermissionMaskFor(documentType, status string, roles []Role, pctx PermContext) PermissionMask {
	t, ok := permissionTables[documentType]
	if !ok {
		log.Errorf("no permission table registered for document type %s", documentType)
		return PermissionMask{}
	}
	return t.mask(status, roles, pctx)
}

// CanEdit reports whether the mask permits editing the given field
func (m PermissionMask) CanEdit(field string) bool {
	return m[field].Edit
}

// EditableFields lists the fields the mask permits editing, sorted
func (m PermissionMask) EditableFields() []string {
	return m.fieldsWhere(func(p FieldPolicy) bool { return p.Edit })
}

// RequiredFields lists the fields the mask marks required, sorted
func (m PermissionMask) RequiredFields() []string {
	return m.fieldsWhere(func(p FieldPolicy) bool { return p.Required })
}

// VisibleFields lists the fields the mask permits viewing, sorted
func (m PermissionMask) VisibleFields() []string {
	return m.fieldsWhere(func(p FieldPolicy) bool { return p.View })
}

func (m PermissionMask) fieldsWhere(match func(FieldPolicy) bool) []string {
	var fields []string
	for field, policy := range m {
		if match(policy) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// rule declaration helpers

func boolPtr(b bool) *bool { return &b }

var (
	ruleEdit     = boolPtr(true)
	ruleNoEdit   = boolPtr(false)
	ruleRequired = boolPtr(true)
)
