package sparql

// Kind says which inputs a template needs.
type Kind int

const (
	// KindCount takes a positive integer for %s.
	KindCount Kind = iota
	// KindTerm takes free text for %s.
	KindTerm
	// KindTermLimit takes free text for %s and an optional limit for %l.
	KindTermLimit
	// KindDay takes optional text for %s, a day for %d/%a and an optional limit.
	KindDay
	// KindRange takes a from/to date range for %d/%a and an optional limit.
	KindRange
)

// Template is one entry of the query menu.
type Template struct {
	Name  string
	Kind  Kind
	Query string
}

// Label is the input prompt for the template's %s token.
func (t Template) Label() string {
	switch t.Kind {
	case KindCount:
		return "Number of results"
	case KindTerm:
		return "Name"
	default:
		return "Title"
	}
}

// HasLimit reports whether the template accepts an optional LIMIT.
func (t Template) HasLimit() bool {
	return t.Kind == KindTermLimit || t.Kind == KindDay || t.Kind == KindRange
}

// NeedsTerm reports whether the template reads the %s text input.
func (t Template) NeedsTerm() bool {
	return t.Kind != KindRange
}

// templates is the query menu, in display order.
var templates = []Template{
	{
		Name: "Find people",
		Kind: KindCount,
		Query: `PREFIX schema: <http://schema.org/>
SELECT ?person ?name WHERE {
    ?person a schema:Person ;
    schema:name ?name .
}
LIMIT %s`,
	},
	{
		Name: "Find a specific person by name",
		Kind: KindTerm,
		Query: `PREFIX schema: <http://schema.org/>
select ?s ?p ?o where {
    ?s ?p ?o ;
    a schema:Person ;
    schema:name "%s" .
}`,
	},
	{
		Name: "Find works",
		Kind: KindCount,
		Query: `PREFIX schema: <http://schema.org/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
select ?work ?title where {
    ?work a schema:MusicComposition ;
        rdfs:label ?title .
}
LIMIT %s`,
	},
	{
		Name: "Find works by string in the title (case-insensitive)",
		Kind: KindTermLimit,
		Query: `PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX schema: <http://schema.org/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
select distinct ?work ?composer ?title where {
?work a <http://schema.org/MusicComposition> ;
    dcterms:creator ?creator ;
    rdfs:label ?title .
?creator schema:name ?composer
    filter regex(?title, "%s", "i")
}
LIMIT %l`,
	},
	{
		Name: "Find performances of a specific work",
		Kind: KindTermLimit,
		Query: `PREFIX schema: <http://schema.org/>
PREFIX mo: <http://purl.org/ontology/mo/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>

SELECT ?performanceID ?date ?performerID ?name ?work ?title
WHERE {
?performanceID schema:subEvent ?workPerformance ;
                schema:startDate ?date .
?workPerformance schema:workPerformed ?work .

?work a schema:MusicComposition ;
        rdfs:label ?title .
FILTER (CONTAINS(?title, "%s"))

?workPerformance mo:performer ?performerID .
?performerID schema:name ?name .
}
LIMIT %l`,
	},
	{
		Name: "Find performances on a specific day",
		Kind: KindDay,
		Query: `PREFIX schema: <http://schema.org/>
PREFIX mo: <http://purl.org/ontology/mo/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>

SELECT ?performanceID ?date ?performerID ?name ?work ?title
WHERE {
?performanceID schema:subEvent ?workPerformance ;
                schema:startDate ?date .
?workPerformance schema:workPerformed ?work .

?work a schema:MusicComposition ;
        rdfs:label ?title .
FILTER (CONTAINS(?title, "%s"))
FILTER (?date >= "%d"^^xsd:dateTime && ?date < "%a"^^xsd:dateTime)
?workPerformance mo:performer ?performerID .
?performerID schema:name ?name .
}
LIMIT %l`,
	},
	{
		Name: "Find performances within a specific date range",
		Kind: KindRange,
		Query: `PREFIX schema: <http://schema.org/>
PREFIX mo: <http://purl.org/ontology/mo/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>

SELECT ?performanceID ?date ?performerID ?name ?work ?title
WHERE {
?performanceID schema:subEvent ?workPerformance ;
                schema:startDate ?date .
?workPerformance schema:workPerformed ?work .

?work a schema:MusicComposition ;
        rdfs:label ?title .

FILTER (?date >= "%d"^^xsd:dateTime && ?date < "%a"^^xsd:dateTime)
?workPerformance mo:performer ?performerID .
?performerID schema:name ?name .
}
LIMIT %l`,
	},
}
