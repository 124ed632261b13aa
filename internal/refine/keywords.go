package refine

import "github.com/mosaic-agent/mosaic/pkg/models"

// Keyword tables drive the deterministic prompt analysis. The engine
// serves French and English users, so both forms appear; matching is
// against the lowercased prompt.

// typeKeywords maps each prompt type to its action-keyword bucket.
// Classification checks buckets in typeOrder; the first match wins and
// coding is always checked first.
var typeKeywords = map[models.PromptType][]string{
	models.PromptTypeCoding: {
		"code", "fonction", "function", "script", "programme", "program",
		"implémenter", "implement", "debug", "déboguer", "bug", "api",
		"classe", "class", "algorithme", "algorithm", "compiler", "refactor",
	},
	models.PromptTypeExplanation: {
		"expliquer", "explique", "explain", "pourquoi", "why", "comment",
		"how", "décrire", "describe", "qu'est-ce", "what is", "définir", "define",
	},
	models.PromptTypeGeneration: {
		"créer", "create", "générer", "generate", "écrire", "write",
		"rédiger", "produire", "produce", "make", "composer", "compose",
	},
	models.PromptTypeAnalysis: {
		"analyser", "analyze", "comparer", "compare", "évaluer", "evaluate",
		"examiner", "review", "auditer", "audit", "mesurer", "assess",
	},
}

// typeOrder fixes the bucket evaluation order.
var typeOrder = []models.PromptType{
	models.PromptTypeCoding,
	models.PromptTypeExplanation,
	models.PromptTypeGeneration,
	models.PromptTypeAnalysis,
}

// domainKeywords maps each domain to its membership set. First match
// wins in domainOrder. Language names alone do not imply a domain: a
// plain JavaScript function request stays in the general domain.
var domainKeywords = map[models.PromptDomain][]string{
	models.DomainWeb: {
		"html", "css", "frontend", "front-end", "react", "vue", "angular",
		"site web", "website", "navigateur", "browser", "dom",
	},
	models.DomainBackend: {
		"serveur", "server", "base de données", "database", "sql",
		"backend", "back-end", "rest", "graphql", "microservice", "endpoint",
	},
	models.DomainMobile: {
		"mobile", "android", "ios", "swift", "kotlin", "flutter",
		"application mobile",
	},
	models.DomainData: {
		"données", "data", "csv", "pandas", "statistique", "statistics",
		"machine learning", "apprentissage", "dataset", "etl",
	},
}

// domainOrder fixes the domain evaluation order.
var domainOrder = []models.PromptDomain{
	models.DomainWeb,
	models.DomainBackend,
	models.DomainMobile,
	models.DomainData,
}

// interrogatives are the question words a clear prompt tends to carry.
var interrogatives = []string{
	"comment", "how", "pourquoi", "why", "quoi", "what", "quel", "quelle",
	"which", "où", "where", "quand", "when",
}

// precisionMarkers signal an explicit precision requirement.
var precisionMarkers = []string{
	"précisément", "precisely", "exactement", "exactly", "spécifiquement",
	"specifically", "en particulier", "in particular", "étape par étape",
	"step by step",
}

// specificityMarkers are the qualifying prepositional markers counted for
// the specificity grade.
var specificityMarkers = []string{
	"avec", "with", "en utilisant", "using", "pour", "for", "dans", "in",
	"basé sur", "based on", "à partir de", "from", "sans", "without",
	"selon", "according to",
}

// actionVerbs signal an actionable request.
var actionVerbs = []string{
	"créer", "create", "construire", "build", "implémenter", "implement",
	"écrire", "write", "développer", "develop", "corriger", "fix",
	"ajouter", "add", "générer", "generate", "optimiser", "optimize",
}

// constraintMarkers signal an explicit constraint on the result.
var constraintMarkers = []string{
	"doit", "must", "devrait", "should", "maximum", "minimum", "limite",
	"limit", "sans utiliser", "without using", "au plus", "at most",
	"uniquement", "only",
}

// clarifyingQuestions are appended when clarity is low, keyed by type.
var clarifyingQuestions = map[models.PromptType][]string{
	models.PromptTypeCoding: {
		"Which language and runtime version should the code target?",
		"What inputs and outputs are expected?",
		"Are there existing conventions or libraries to follow?",
	},
	models.PromptTypeExplanation: {
		"What level of detail is expected (overview or in depth)?",
		"Is there a specific aspect to focus on?",
	},
	models.PromptTypeGeneration: {
		"What format and length should the output have?",
		"Who is the intended audience?",
	},
	models.PromptTypeAnalysis: {
		"What criteria should the analysis apply?",
		"What should be compared against?",
	},
	models.PromptTypeGeneral: {
		"What outcome would make this answer useful?",
	},
}
