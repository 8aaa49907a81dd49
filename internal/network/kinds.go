package network

import "strings"

// RelationshipKind is the type of a directed edge
type RelationshipKind string

const (
	// Ownership and control
	KindOwns            RelationshipKind = "OWNS"
	KindControls        RelationshipKind = "CONTROLS"
	KindDirectorOf      RelationshipKind = "DIRECTOR_OF"
	KindShareholderOf   RelationshipKind = "SHAREHOLDER_OF"
	KindEmployeeOf      RelationshipKind = "EMPLOYEE_OF"
	KindBeneficialOwner RelationshipKind = "BENEFICIAL_OWNER"

	// Personal
	KindRelatedTo RelationshipKind = "RELATED_TO"
	KindFamilyOf  RelationshipKind = "FAMILY_OF"

	// Financial
	KindTransactedWith      RelationshipKind = "TRANSACTED_WITH"
	KindSentTo              RelationshipKind = "SENT_TO"
	KindReceivedFrom        RelationshipKind = "RECEIVED_FROM"
	KindAccountHolder       RelationshipKind = "ACCOUNT_HOLDER"
	KindAuthorizedSignatory RelationshipKind = "AUTHORIZED_SIGNATORY"

	// Location
	KindRegisteredAt RelationshipKind = "REGISTERED_AT"
	KindResidesAt    RelationshipKind = "RESIDES_AT"
	KindOperatesFrom RelationshipKind = "OPERATES_FROM"

	// Communication
	KindContacted    RelationshipKind = "CONTACTED"
	KindSharesPhone  RelationshipKind = "SHARES_PHONE"
	KindSharesEmail  RelationshipKind = "SHARES_EMAIL"
	KindSharesDevice RelationshipKind = "SHARES_DEVICE"

	// Inferred
	KindCoLocated          RelationshipKind = "CO_LOCATED"
	KindSameNetwork        RelationshipKind = "SAME_NETWORK"
	KindPotentialDuplicate RelationshipKind = "POTENTIAL_DUPLICATE"
)

var knownKinds = map[RelationshipKind]bool{
	KindOwns: true, KindControls: true, KindDirectorOf: true, KindShareholderOf: true,
	KindEmployeeOf: true, KindBeneficialOwner: true, KindRelatedTo: true, KindFamilyOf: true,
	KindTransactedWith: true, KindSentTo: true, KindReceivedFrom: true, KindAccountHolder: true,
	KindAuthorizedSignatory: true, KindRegisteredAt: true, KindResidesAt: true, KindOperatesFrom: true,
	KindContacted: true, KindSharesPhone: true, KindSharesEmail: true, KindSharesDevice: true,
	KindCoLocated: true, KindSameNetwork: true, KindPotentialDuplicate: true,
}

// ParseRelationshipKind maps a kind name onto a known kind. Unknown names
// yield RELATED_TO and false.
func ParseRelationshipKind(s string) (RelationshipKind, bool) {
	kind := RelationshipKind(strings.ToUpper(strings.TrimSpace(s)))
	if knownKinds[kind] {
		return kind, true
	}
	return KindRelatedTo, false
}

// Valid reports whether k is a known kind
func (k RelationshipKind) Valid() bool {
	return knownKinds[k]
}
