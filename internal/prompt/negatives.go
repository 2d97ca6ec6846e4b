package prompt

import "lexgraph/internal/types"

// Anti-patterns observed in production extraction output. These are
// injected verbatim into the DO NOT blocks of each wave prompt.
var negativeExamples = map[types.EntityFamily][]string{
	types.FamilyActors: {
		`historical scholars or treatise authors (e.g. "Blackstone", "Prosser") as ATTORNEY or JUDGE; they are PERSON at most`,
		`judges named only inside a cited opinion as the presiding JUDGE of this document`,
		`law firm names as ATTORNEY; firms are LAW_FIRM`,
		`generic role words ("the parties", "counsel") with no name attached`,
	},
	types.FamilyCitations: {
		`filenames or exhibit labels that resemble case names (e.g. "smith_v_jones.pdf", "Ex. A") as CASE_CITATION`,
		`internal cross-references ("see Section 4.2 above") as STATUTE_CITATION`,
		`table-of-contents or heading section numbers as citations`,
		`URLs or database accession numbers as citations`,
	},
	types.FamilyTemporal: {
		`the year inside a reporter citation (the "(1973)" in "410 U.S. 113 (1973)") as a separate DATE`,
		`ages ("a 34-year-old") as TIME_PERIOD`,
	},
	types.FamilyProcedural: {
		`motions or orders that occur only inside quoted text from another case`,
		`hypothetical or future filings ("should plaintiff file a motion") as MOTION`,
	},
	types.FamilyFinancial: {
		`statutory maximum penalties quoted from a statute as FINE or DAMAGES actually imposed`,
		`dollar figures inside citations or docket numbers`,
	},
	types.FamilyOrganizations: {
		`court names appearing only inside a case citation as a separate COURT entity`,
		`party names that merely look corporate without an entity indicator`,
	},
	types.FamilySupporting: {
		`colloquial uses of "claim", "issue", or "standing" that are not legal terms of art`,
		`clause headings from a table of contents as CONTRACT_CLAUSE`,
	},
}

var relationshipNegatives = []string{
	"relationships between an entity and itself",
	"relationships whose evidence is only the co-occurrence of two entities in the same sentence",
	"relationships referencing entity ids that are not in the list above",
}
