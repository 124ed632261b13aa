package guard

// DefaultDenyList names the external integration frameworks the engine
// must never be wired to. The pipeline is self-contained; configuration or
// payloads referencing these indicate contamination from a foreign stack.
// All entries are lowercase; matching is case-insensitive.
var DefaultDenyList = []string{
	"crewai",
	"langchain",
	"autogen",
	"semantic-kernel",
	"flowise",
}

// prohibitionMarkers recognize the sentence that states the separation
// rule itself, in which a deny-listed term is tolerated. English and
// French forms, matched against lowercased text.
var prohibitionMarkers = []string{
	"must not",
	"do not use",
	"not be used",
	"forbidden",
	"prohibited",
	"ne doit pas",
	"ne pas utiliser",
	"interdit",
}
