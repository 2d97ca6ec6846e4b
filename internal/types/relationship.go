package types

// RelationshipType is a member of the closed relationship enumeration,
// grouped into eight families.
type RelationshipType string

const (
	// Case-to-case
	RelCitesCase      RelationshipType = "CITES_CASE"
	RelDistinguishes  RelationshipType = "DISTINGUISHES"
	RelOverrules      RelationshipType = "OVERRULES"
	RelAffirms        RelationshipType = "AFFIRMS"
	RelReverses       RelationshipType = "REVERSES"
	RelRemandsTo      RelationshipType = "REMANDS_TO"
	RelFollows        RelationshipType = "FOLLOWS"

	// Statute
	RelCitesStatute      RelationshipType = "CITES_STATUTE"
	RelInterpretsStatute RelationshipType = "INTERPRETS_STATUTE"
	RelAppliesRegulation RelationshipType = "APPLIES_REGULATION"
	RelInvalidatesStatute RelationshipType = "INVALIDATES_STATUTE"

	// Party
	RelRepresents RelationshipType = "REPRESENTS"
	RelSues       RelationshipType = "SUES"
	RelOpposes    RelationshipType = "OPPOSES"
	RelEmployedBy RelationshipType = "EMPLOYED_BY"
	RelAgentOf    RelationshipType = "AGENT_OF"

	// Procedural
	RelFiledBy    RelationshipType = "FILED_BY"
	RelDecidedBy  RelationshipType = "DECIDED_BY"
	RelPresidedBy RelationshipType = "PRESIDED_BY"
	RelGrantedBy  RelationshipType = "GRANTED_BY"
	RelDeniedBy   RelationshipType = "DENIED_BY"
	RelAppealedTo RelationshipType = "APPEALED_TO"

	// Document
	RelReferencesDocument RelationshipType = "REFERENCES_DOCUMENT"
	RelAmends             RelationshipType = "AMENDS"
	RelSupersedes         RelationshipType = "SUPERSEDES"
	RelIncorporates       RelationshipType = "INCORPORATES"

	// Contractual
	RelPartyTo     RelationshipType = "PARTY_TO"
	RelObligatedTo RelationshipType = "OBLIGATED_TO"
	RelIndemnifies RelationshipType = "INDEMNIFIES"
	RelAssignsTo   RelationshipType = "ASSIGNS_TO"

	// Judicial
	RelAuthoredBy  RelationshipType = "AUTHORED_BY"
	RelJoinedBy    RelationshipType = "JOINED_BY"
	RelDissentedBy RelationshipType = "DISSENTED_BY"

	// Temporal
	RelOccurredOn RelationshipType = "OCCURRED_ON"
)

// RelationshipFamily groups relationship types.
type RelationshipFamily string

const (
	RelFamilyCaseToCase  RelationshipFamily = "case_to_case"
	RelFamilyStatute     RelationshipFamily = "statute"
	RelFamilyParty       RelationshipFamily = "party"
	RelFamilyProcedural  RelationshipFamily = "procedural"
	RelFamilyDocument    RelationshipFamily = "document"
	RelFamilyContractual RelationshipFamily = "contractual"
	RelFamilyJudicial    RelationshipFamily = "judicial"
	RelFamilyTemporal    RelationshipFamily = "temporal"
)

var relationshipFamilies = map[RelationshipFamily][]RelationshipType{
	RelFamilyCaseToCase: {
		RelCitesCase, RelDistinguishes, RelOverrules, RelAffirms,
		RelReverses, RelRemandsTo, RelFollows,
	},
	RelFamilyStatute: {
		RelCitesStatute, RelInterpretsStatute, RelAppliesRegulation,
		RelInvalidatesStatute,
	},
	RelFamilyParty: {
		RelRepresents, RelSues, RelOpposes, RelEmployedBy, RelAgentOf,
	},
	RelFamilyProcedural: {
		RelFiledBy, RelDecidedBy, RelPresidedBy, RelGrantedBy, RelDeniedBy,
		RelAppealedTo,
	},
	RelFamilyDocument: {
		RelReferencesDocument, RelAmends, RelSupersedes, RelIncorporates,
	},
	RelFamilyContractual: {
		RelPartyTo, RelObligatedTo, RelIndemnifies, RelAssignsTo,
	},
	RelFamilyJudicial: {
		RelAuthoredBy, RelJoinedBy, RelDissentedBy,
	},
	RelFamilyTemporal: {
		RelOccurredOn,
	},
}

var relationshipTypeSet = func() map[RelationshipType]RelationshipFamily {
	m := make(map[RelationshipType]RelationshipFamily)
	for fam, list := range relationshipFamilies {
		for _, t := range list {
			m[t] = fam
		}
	}
	return m
}()

// ValidRelationshipType reports whether t is in the closed enumeration.
func ValidRelationshipType(t RelationshipType) bool {
	_, ok := relationshipTypeSet[t]
	return ok
}

// AllRelationshipTypes returns the full enumeration in stable order.
func AllRelationshipTypes() []RelationshipType {
	order := []RelationshipFamily{
		RelFamilyCaseToCase, RelFamilyStatute, RelFamilyParty,
		RelFamilyProcedural, RelFamilyDocument, RelFamilyContractual,
		RelFamilyJudicial, RelFamilyTemporal,
	}
	var out []RelationshipType
	for _, f := range order {
		out = append(out, relationshipFamilies[f]...)
	}
	return out
}

// Relationship links two entities extracted from the same document.
// Both endpoint IDs must refer to entities produced by earlier waves of
// the same extraction, and the endpoints must differ.
type Relationship struct {
	SourceEntityID   string            `json:"source_entity_id"`
	TargetEntityID   string            `json:"target_entity_id"`
	RelationshipType RelationshipType  `json:"relationship_type"`
	Confidence       float64           `json:"confidence"`
	EvidenceText     string            `json:"evidence_text"`
	ContextBefore    string            `json:"context_before,omitempty"`
	ContextAfter     string            `json:"context_after,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// IdentityKey is the dedup identity: (source, type, target).
func (r Relationship) IdentityKey() string {
	return r.SourceEntityID + "\x00" + string(r.RelationshipType) + "\x00" + r.TargetEntityID
}
