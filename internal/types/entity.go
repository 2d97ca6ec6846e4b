package types

import "strings"

// EntityType is a member of the closed entity-type enumeration. Model
// output naming anything outside the enumeration is rejected at
// validation, never coerced.
type EntityType string

// The enumeration, grouped by family. Wave 1 covers actors, citations and
// temporal types; wave 2 covers procedural, financial and organization
// types; wave 3 covers the supporting families.
const (
	// Actors
	EntityPerson         EntityType = "PERSON"
	EntityJudge          EntityType = "JUDGE"
	EntityAttorney       EntityType = "ATTORNEY"
	EntityParty          EntityType = "PARTY"
	EntityPlaintiff      EntityType = "PLAINTIFF"
	EntityDefendant      EntityType = "DEFENDANT"
	EntityAppellant      EntityType = "APPELLANT"
	EntityAppellee       EntityType = "APPELLEE"
	EntityPetitioner     EntityType = "PETITIONER"
	EntityRespondent     EntityType = "RESPONDENT"
	EntityWitness        EntityType = "WITNESS"
	EntityExpertWitness  EntityType = "EXPERT_WITNESS"
	EntityVictim         EntityType = "VICTIM"
	EntityJuror          EntityType = "JUROR"
	EntityProsecutor     EntityType = "PROSECUTOR"
	EntityPublicDefender EntityType = "PUBLIC_DEFENDER"
	EntityGuardian       EntityType = "GUARDIAN"
	EntityTrustee        EntityType = "TRUSTEE"
	EntityExecutor       EntityType = "EXECUTOR"
	EntityBeneficiary    EntityType = "BENEFICIARY"
	EntityDebtor         EntityType = "DEBTOR"
	EntityCreditor       EntityType = "CREDITOR"
	EntityLandlord       EntityType = "LANDLORD"
	EntityTenant         EntityType = "TENANT"
	EntityEmployer       EntityType = "EMPLOYER"
	EntityEmployee       EntityType = "EMPLOYEE"
	EntityGrantor        EntityType = "GRANTOR"
	EntityGrantee        EntityType = "GRANTEE"
	EntityLicensor       EntityType = "LICENSOR"
	EntityLicensee       EntityType = "LICENSEE"
	EntityAssignor       EntityType = "ASSIGNOR"
	EntityAssignee       EntityType = "ASSIGNEE"
	EntityGuarantor      EntityType = "GUARANTOR"
	EntityInsurer        EntityType = "INSURER"
	EntityInsured        EntityType = "INSURED"
	EntityShareholder    EntityType = "SHAREHOLDER"
	EntityDirector       EntityType = "DIRECTOR"
	EntityOfficer        EntityType = "OFFICER"
	EntityPartnerActor   EntityType = "PARTNER"
	EntityMediator       EntityType = "MEDIATOR"
	EntityArbitrator     EntityType = "ARBITRATOR"
	EntityMagistrate     EntityType = "MAGISTRATE"
	EntityNotary         EntityType = "NOTARY"
	EntityCourtClerk     EntityType = "COURT_CLERK"

	// Citations
	EntityCaseCitation           EntityType = "CASE_CITATION"
	EntityStatuteCitation        EntityType = "STATUTE_CITATION"
	EntityRegulationCitation     EntityType = "REGULATION_CITATION"
	EntityConstitutionalCitation EntityType = "CONSTITUTIONAL_CITATION"
	EntityRuleCitation           EntityType = "RULE_CITATION"
	EntityTreatyCitation         EntityType = "TREATY_CITATION"
	EntityOrdinanceCitation      EntityType = "ORDINANCE_CITATION"
	EntityLawReviewCitation      EntityType = "LAW_REVIEW_CITATION"
	EntityTreatiseCitation       EntityType = "TREATISE_CITATION"
	EntityRestatementCitation    EntityType = "RESTATEMENT_CITATION"
	EntitySlipOpinionCitation    EntityType = "SLIP_OPINION_CITATION"
	EntityParallelCitation       EntityType = "PARALLEL_CITATION"
	EntityShortFormCitation      EntityType = "SHORT_FORM_CITATION"
	EntityIdCitation             EntityType = "ID_CITATION"
	EntitySupraCitation          EntityType = "SUPRA_CITATION"
	EntityForeignCitation        EntityType = "FOREIGN_CITATION"
	EntityDocketNumber           EntityType = "DOCKET_NUMBER"
	EntityCaseName               EntityType = "CASE_NAME"
	EntityCaseNumber             EntityType = "CASE_NUMBER"

	// Temporal
	EntityDate                 EntityType = "DATE"
	EntityFilingDate           EntityType = "FILING_DATE"
	EntityDecisionDate         EntityType = "DECISION_DATE"
	EntityHearingDate          EntityType = "HEARING_DATE"
	EntityTrialDate            EntityType = "TRIAL_DATE"
	EntityEffectiveDate        EntityType = "EFFECTIVE_DATE"
	EntityExpirationDate       EntityType = "EXPIRATION_DATE"
	EntityDeadline             EntityType = "DEADLINE"
	EntityTermDuration         EntityType = "TERM_DURATION"
	EntityTimePeriod           EntityType = "TIME_PERIOD"
	EntityStatuteOfLimitations EntityType = "STATUTE_OF_LIMITATIONS"

	// Procedural
	EntityMotion           EntityType = "MOTION"
	EntityOrder            EntityType = "ORDER"
	EntityJudgment         EntityType = "JUDGMENT"
	EntityVerdict          EntityType = "VERDICT"
	EntityRuling           EntityType = "RULING"
	EntityOpinion          EntityType = "OPINION"
	EntityDissent          EntityType = "DISSENT"
	EntityConcurrence      EntityType = "CONCURRENCE"
	EntityInjunction       EntityType = "INJUNCTION"
	EntitySubpoena         EntityType = "SUBPOENA"
	EntitySummons          EntityType = "SUMMONS"
	EntityComplaint        EntityType = "COMPLAINT"
	EntityAnswer           EntityType = "ANSWER"
	EntityBrief            EntityType = "BRIEF"
	EntityPetition         EntityType = "PETITION"
	EntityAppeal           EntityType = "APPEAL"
	EntityRemandAction     EntityType = "REMAND"
	EntityDismissal        EntityType = "DISMISSAL"
	EntitySettlement       EntityType = "SETTLEMENT"
	EntityPlea             EntityType = "PLEA"
	EntityIndictment       EntityType = "INDICTMENT"
	EntityDeposition       EntityType = "DEPOSITION"
	EntityDiscoveryRequest EntityType = "DISCOVERY_REQUEST"
	EntityInterrogatory    EntityType = "INTERROGATORY"
	EntityObjection        EntityType = "OBJECTION"
	EntityStipulation      EntityType = "STIPULATION"
	EntityHearing          EntityType = "HEARING"
	EntityTrial            EntityType = "TRIAL"
	EntitySentencing       EntityType = "SENTENCING"
	EntityProbation        EntityType = "PROBATION"

	// Financial
	EntityMonetaryAmount      EntityType = "MONETARY_AMOUNT"
	EntityDamages             EntityType = "DAMAGES"
	EntityCompensatoryDamages EntityType = "COMPENSATORY_DAMAGES"
	EntityPunitiveDamages     EntityType = "PUNITIVE_DAMAGES"
	EntityFine                EntityType = "FINE"
	EntityPenalty             EntityType = "PENALTY"
	EntityAttorneyFees        EntityType = "ATTORNEY_FEES"
	EntityCosts               EntityType = "COSTS"
	EntitySettlementAmount    EntityType = "SETTLEMENT_AMOUNT"
	EntityBailAmount          EntityType = "BAIL_AMOUNT"
	EntityLienAmount          EntityType = "LIEN_AMOUNT"
	EntityInterestRate        EntityType = "INTEREST_RATE"
	EntityPaymentTerm         EntityType = "PAYMENT_TERM"
	EntityConsideration       EntityType = "CONSIDERATION"
	EntityPurchasePrice       EntityType = "PURCHASE_PRICE"
	EntityRentAmount          EntityType = "RENT_AMOUNT"
	EntityRoyalty             EntityType = "ROYALTY"

	// Organizations and institutions
	EntityCourt            EntityType = "COURT"
	EntityFederalCourt     EntityType = "FEDERAL_COURT"
	EntityStateCourt       EntityType = "STATE_COURT"
	EntityAppellateCourt   EntityType = "APPELLATE_COURT"
	EntitySupremeCourt     EntityType = "SUPREME_COURT"
	EntityDistrictCourt    EntityType = "DISTRICT_COURT"
	EntityBankruptcyCourt  EntityType = "BANKRUPTCY_COURT"
	EntityTribunal         EntityType = "TRIBUNAL"
	EntityAgency           EntityType = "AGENCY"
	EntityLegislature      EntityType = "LEGISLATURE"
	EntityLawFirm          EntityType = "LAW_FIRM"
	EntityGovernmentEntity EntityType = "GOVERNMENT_ENTITY"
	EntityCorporation      EntityType = "CORPORATION"
	EntityLLC              EntityType = "LLC"
	EntityPartnership      EntityType = "PARTNERSHIP"
	EntityNonprofit        EntityType = "NONPROFIT"
	EntityTrust            EntityType = "TRUST"
	EntityEstate           EntityType = "ESTATE"
	EntityUnion            EntityType = "UNION"
	EntityBank             EntityType = "BANK"
	EntityInsuranceCompany EntityType = "INSURANCE_COMPANY"

	// Supporting: claims, doctrines, clauses, property, evidence
	EntityLegalDoctrine          EntityType = "LEGAL_DOCTRINE"
	EntityLegalStandard          EntityType = "LEGAL_STANDARD"
	EntityBurdenOfProof          EntityType = "BURDEN_OF_PROOF"
	EntityCauseOfAction          EntityType = "CAUSE_OF_ACTION"
	EntityClaim                  EntityType = "CLAIM"
	EntityDefense                EntityType = "DEFENSE"
	EntityCounterclaim           EntityType = "COUNTERCLAIM"
	EntityCharge                 EntityType = "CHARGE"
	EntityOffense                EntityType = "OFFENSE"
	EntityFelony                 EntityType = "FELONY"
	EntityMisdemeanor            EntityType = "MISDEMEANOR"
	EntityTort                   EntityType = "TORT"
	EntityBreach                 EntityType = "BREACH"
	EntityLiability              EntityType = "LIABILITY"
	EntityRemedy                 EntityType = "REMEDY"
	EntityReliefSought           EntityType = "RELIEF_SOUGHT"
	EntityJurisdiction           EntityType = "JURISDICTION"
	EntityVenue                  EntityType = "VENUE"
	EntityStanding               EntityType = "STANDING"
	EntityPrecedent              EntityType = "PRECEDENT"
	EntityHolding                EntityType = "HOLDING"
	EntityDictum                 EntityType = "DICTUM"
	EntityIssue                  EntityType = "ISSUE"
	EntityFactFinding            EntityType = "FACT_FINDING"
	EntityExhibit                EntityType = "EXHIBIT"
	EntityContractClause         EntityType = "CONTRACT_CLAUSE"
	EntityContractTerm           EntityType = "CONTRACT_TERM"
	EntityWarranty               EntityType = "WARRANTY"
	EntityCovenant               EntityType = "COVENANT"
	EntityCondition              EntityType = "CONDITION"
	EntityRepresentation         EntityType = "REPRESENTATION"
	EntityIndemnity              EntityType = "INDEMNITY"
	EntityArbitrationClause      EntityType = "ARBITRATION_CLAUSE"
	EntityChoiceOfLawClause      EntityType = "CHOICE_OF_LAW_CLAUSE"
	EntityForceMajeureClause     EntityType = "FORCE_MAJEURE_CLAUSE"
	EntitySeverabilityClause     EntityType = "SEVERABILITY_CLAUSE"
	EntityConfidentialityClause  EntityType = "CONFIDENTIALITY_CLAUSE"
	EntityNonCompeteClause       EntityType = "NON_COMPETE_CLAUSE"
	EntityTerminationClause      EntityType = "TERMINATION_CLAUSE"
	EntityRealProperty           EntityType = "REAL_PROPERTY"
	EntityPersonalProperty       EntityType = "PERSONAL_PROPERTY"
	EntityIntellectualProperty   EntityType = "INTELLECTUAL_PROPERTY"
	EntityPatent                 EntityType = "PATENT"
	EntityTrademark              EntityType = "TRADEMARK"
	EntityCopyright              EntityType = "COPYRIGHT"
	EntityTradeSecret            EntityType = "TRADE_SECRET"
	EntityLicense                EntityType = "LICENSE"
	EntityDeed                   EntityType = "DEED"
	EntityEasement               EntityType = "EASEMENT"
	EntityMortgage               EntityType = "MORTGAGE"
	EntityAddress                EntityType = "ADDRESS"
	EntityLocation               EntityType = "LOCATION"
	EntityStatuteName            EntityType = "STATUTE_NAME"
	EntityConstitutionalProvision EntityType = "CONSTITUTIONAL_PROVISION"
	EntityAmendment              EntityType = "AMENDMENT"
	EntitySectionReference       EntityType = "SECTION_REFERENCE"
	EntitySignatureBlock         EntityType = "SIGNATURE_BLOCK"
	EntityNotarization           EntityType = "NOTARIZATION"
)

// EntityFamily groups entity types for wave assignment and prompt blocks.
type EntityFamily string

const (
	FamilyActors        EntityFamily = "actors"
	FamilyCitations     EntityFamily = "citations"
	FamilyTemporal      EntityFamily = "temporal"
	FamilyProcedural    EntityFamily = "procedural"
	FamilyFinancial     EntityFamily = "financial"
	FamilyOrganizations EntityFamily = "organizations"
	FamilySupporting    EntityFamily = "supporting"
)

var entityFamilies = map[EntityFamily][]EntityType{
	FamilyActors: {
		EntityPerson, EntityJudge, EntityAttorney, EntityParty,
		EntityPlaintiff, EntityDefendant, EntityAppellant, EntityAppellee,
		EntityPetitioner, EntityRespondent, EntityWitness, EntityExpertWitness,
		EntityVictim, EntityJuror, EntityProsecutor, EntityPublicDefender,
		EntityGuardian, EntityTrustee, EntityExecutor, EntityBeneficiary,
		EntityDebtor, EntityCreditor, EntityLandlord, EntityTenant,
		EntityEmployer, EntityEmployee, EntityGrantor, EntityGrantee,
		EntityLicensor, EntityLicensee, EntityAssignor, EntityAssignee,
		EntityGuarantor, EntityInsurer, EntityInsured, EntityShareholder,
		EntityDirector, EntityOfficer, EntityPartnerActor, EntityMediator,
		EntityArbitrator, EntityMagistrate, EntityNotary, EntityCourtClerk,
	},
	FamilyCitations: {
		EntityCaseCitation, EntityStatuteCitation, EntityRegulationCitation,
		EntityConstitutionalCitation, EntityRuleCitation, EntityTreatyCitation,
		EntityOrdinanceCitation, EntityLawReviewCitation, EntityTreatiseCitation,
		EntityRestatementCitation, EntitySlipOpinionCitation, EntityParallelCitation,
		EntityShortFormCitation, EntityIdCitation, EntitySupraCitation,
		EntityForeignCitation, EntityDocketNumber, EntityCaseName, EntityCaseNumber,
	},
	FamilyTemporal: {
		EntityDate, EntityFilingDate, EntityDecisionDate, EntityHearingDate,
		EntityTrialDate, EntityEffectiveDate, EntityExpirationDate,
		EntityDeadline, EntityTermDuration, EntityTimePeriod,
		EntityStatuteOfLimitations,
	},
	FamilyProcedural: {
		EntityMotion, EntityOrder, EntityJudgment, EntityVerdict, EntityRuling,
		EntityOpinion, EntityDissent, EntityConcurrence, EntityInjunction,
		EntitySubpoena, EntitySummons, EntityComplaint, EntityAnswer,
		EntityBrief, EntityPetition, EntityAppeal, EntityRemandAction,
		EntityDismissal, EntitySettlement, EntityPlea, EntityIndictment,
		EntityDeposition, EntityDiscoveryRequest, EntityInterrogatory,
		EntityObjection, EntityStipulation, EntityHearing, EntityTrial,
		EntitySentencing, EntityProbation,
	},
	FamilyFinancial: {
		EntityMonetaryAmount, EntityDamages, EntityCompensatoryDamages,
		EntityPunitiveDamages, EntityFine, EntityPenalty, EntityAttorneyFees,
		EntityCosts, EntitySettlementAmount, EntityBailAmount, EntityLienAmount,
		EntityInterestRate, EntityPaymentTerm, EntityConsideration,
		EntityPurchasePrice, EntityRentAmount, EntityRoyalty,
	},
	FamilyOrganizations: {
		EntityCourt, EntityFederalCourt, EntityStateCourt, EntityAppellateCourt,
		EntitySupremeCourt, EntityDistrictCourt, EntityBankruptcyCourt,
		EntityTribunal, EntityAgency, EntityLegislature, EntityLawFirm,
		EntityGovernmentEntity, EntityCorporation, EntityLLC, EntityPartnership,
		EntityNonprofit, EntityTrust, EntityEstate, EntityUnion, EntityBank,
		EntityInsuranceCompany,
	},
	FamilySupporting: {
		EntityLegalDoctrine, EntityLegalStandard, EntityBurdenOfProof,
		EntityCauseOfAction, EntityClaim, EntityDefense, EntityCounterclaim,
		EntityCharge, EntityOffense, EntityFelony, EntityMisdemeanor,
		EntityTort, EntityBreach, EntityLiability, EntityRemedy,
		EntityReliefSought, EntityJurisdiction, EntityVenue, EntityStanding,
		EntityPrecedent, EntityHolding, EntityDictum, EntityIssue,
		EntityFactFinding, EntityExhibit, EntityContractClause,
		EntityContractTerm, EntityWarranty, EntityCovenant, EntityCondition,
		EntityRepresentation, EntityIndemnity, EntityArbitrationClause,
		EntityChoiceOfLawClause, EntityForceMajeureClause,
		EntitySeverabilityClause, EntityConfidentialityClause,
		EntityNonCompeteClause, EntityTerminationClause, EntityRealProperty,
		EntityPersonalProperty, EntityIntellectualProperty, EntityPatent,
		EntityTrademark, EntityCopyright, EntityTradeSecret, EntityLicense,
		EntityDeed, EntityEasement, EntityMortgage, EntityAddress,
		EntityLocation, EntityStatuteName, EntityConstitutionalProvision,
		EntityAmendment, EntitySectionReference, EntitySignatureBlock,
		EntityNotarization,
	},
}

var entityTypeSet = func() map[EntityType]EntityFamily {
	m := make(map[EntityType]EntityFamily)
	for fam, list := range entityFamilies {
		for _, t := range list {
			m[t] = fam
		}
	}
	return m
}()

// ValidEntityType reports whether t is in the closed enumeration.
func ValidEntityType(t EntityType) bool {
	_, ok := entityTypeSet[t]
	return ok
}

// FamilyOf returns the family of an entity type, or "" if unknown.
func FamilyOf(t EntityType) EntityFamily { return entityTypeSet[t] }

// EntityTypesIn returns the types of the given families, in a stable
// order (family declaration order).
func EntityTypesIn(families ...EntityFamily) []EntityType {
	var out []EntityType
	for _, f := range families {
		out = append(out, entityFamilies[f]...)
	}
	return out
}

// AllEntityTypes returns the full enumeration in stable order.
func AllEntityTypes() []EntityType {
	return EntityTypesIn(
		FamilyActors, FamilyCitations, FamilyTemporal, FamilyProcedural,
		FamilyFinancial, FamilyOrganizations, FamilySupporting,
	)
}

// Entity is one typed span extracted from a document. Positions are rune
// offsets into the document text; Confidence is in [0,1].
type Entity struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	EntityType       EntityType        `json:"entity_type"`
	StartPos         int               `json:"start_pos"`
	EndPos           int               `json:"end_pos"`
	Confidence       float64           `json:"confidence"`
	ExtractionMethod string            `json:"extraction_method"`
	Subtype          string            `json:"subtype,omitempty"`
	Category         string            `json:"category,omitempty"`
	ContextBefore    string            `json:"context_before,omitempty"`
	ContextAfter     string            `json:"context_after,omitempty"`
	WaveNumber       *int              `json:"wave_number,omitempty"`
	PromptTemplate   string            `json:"prompt_template,omitempty"`
	ChunkIndex       *int              `json:"chunk_index,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// IdentityKey is the dedup identity: (entity_type, lowercased stripped text).
// First occurrence wins under this key.
func (e Entity) IdentityKey() string {
	return string(e.EntityType) + "\x00" + strings.ToLower(strings.TrimSpace(e.Text))
}
