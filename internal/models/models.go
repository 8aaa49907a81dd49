// Package models holds the records, entities and relationship feeds shared by
// the resolution and network engines.
package models

import (
	"sort"
	"time"
)

// Well-known attribute keys
const (
	AttrName                = "name"
	AttrNameStandardized    = "name_standardized"
	AttrDateOfBirth         = "date_of_birth"
	AttrDOBStandardized     = "dob_standardized"
	AttrYearOfBirth         = "year_of_birth"
	AttrAddress             = "address"
	AttrAddressStandardized = "address_standardized"
	AttrCountry             = "country"
	AttrCity                = "city"
	AttrPhone               = "phone"
	AttrPhoneStandardized   = "phone_standardized"
	AttrEmail               = "email"
	AttrEmailStandardized   = "email_standardized"
	AttrNationalID          = "national_id"
	AttrPassport            = "passport"
	AttrTaxID               = "tax_id"
	AttrCompanyReg          = "company_reg"
)

// Attributes is a flexible attribute map with typed values
type Attributes map[string]Value

// Get returns the value for key when it is present and non-null
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a[key]
	if !ok || v.IsZero() {
		return Value{}, false
	}
	return v, true
}

// Text returns the string form of key, or "" when absent
func (a Attributes) Text(key string) string {
	v, ok := a.Get(key)
	if !ok {
		return ""
	}
	return v.String()
}

// FirstText returns the string form of the first present key
func (a Attributes) FirstText(keys ...string) string {
	for _, key := range keys {
		if s := a.Text(key); s != "" {
			return s
		}
	}
	return ""
}

// NonNullCount counts attributes that carry a value
func (a Attributes) NonNullCount() int {
	n := 0
	for _, v := range a {
		if !v.IsZero() {
			n++
		}
	}
	return n
}

// Clone returns a shallow copy
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute keys in lexicographic order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Native converts the map into plain Go values
func (a Attributes) Native() map[string]interface{} {
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		out[k] = v.Native()
	}
	return out
}

// AttributesFromNative converts plain Go values into Attributes
func AttributesFromNative(raw map[string]interface{}) Attributes {
	out := make(Attributes, len(raw))
	for k, v := range raw {
		out[k] = FromNative(v)
	}
	return out
}

// RawRecord is one source-system record awaiting resolution
type RawRecord struct {
	ID           string     `json:"id"`
	SourceSystem string     `json:"source_system"`
	EntityKind   string     `json:"entity_kind"`
	Attributes   Attributes `json:"attributes"`
}

// ResolvedEntity is the golden record produced for one cluster of raw records
type ResolvedEntity struct {
	ResolvedID      string             `json:"resolved_id"`
	CanonicalName   string             `json:"canonical_name"`
	EntityKind      string             `json:"entity_kind"`
	MemberRecordIDs []string           `json:"member_record_ids"`
	SourceSystems   []string           `json:"source_systems"`
	Attributes      Attributes         `json:"canonical_attributes"`
	Confidence      float64            `json:"confidence"`
	MatchScores     map[string]float64 `json:"match_scores,omitempty"`
}

// Transaction is a payment between two resolved entities
type Transaction struct {
	ID               string   `json:"id"`
	SenderEntityID   string   `json:"sender_entity_id"`
	ReceiverEntityID string   `json:"receiver_entity_id"`
	Amount           *float64 `json:"amount,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	TransactionDate  string   `json:"transaction_date,omitempty"`
}

// CorporateRecord is a registry extract for one company
type CorporateRecord struct {
	CompanyID        string            `json:"company_id"`
	Directors        []Director        `json:"directors,omitempty"`
	Shareholders     []Shareholder     `json:"shareholders,omitempty"`
	BeneficialOwners []BeneficialOwner `json:"beneficial_owners,omitempty"`
}

// Director is a company officer
type Director struct {
	EntityID        string `json:"entity_id"`
	Role            string `json:"role,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
}

// Shareholder holds a percentage stake
type Shareholder struct {
	EntityID   string  `json:"entity_id"`
	Percentage float64 `json:"percentage"`
	ShareType  string  `json:"share_type,omitempty"`
}

// BeneficialOwner is a disclosed ultimate owner
type BeneficialOwner struct {
	EntityID        string   `json:"entity_id"`
	Percentage      *float64 `json:"percentage,omitempty"`
	NatureOfControl string   `json:"nature_of_control,omitempty"`
}

// Job statuses
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ResolutionJob records one batch resolution request
type ResolutionJob struct {
	ID             string           `json:"job_id"`
	Status         string           `json:"status"`
	Fingerprint    string           `json:"fingerprint"`
	RecordCount    int              `json:"record_count"`
	EntityCount    int              `json:"entity_count"`
	CandidatePairs int              `json:"candidate_pairs"`
	AcceptedPairs  int              `json:"accepted_pairs"`
	CacheHit       bool             `json:"cache_hit"`
	Error          string           `json:"error,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
	Entities       []ResolvedEntity `json:"entities,omitempty"`
}
