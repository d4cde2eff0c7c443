package search

// DefaultSynonyms maps lowercase words or phrases to text appended to the
// query before embedding. Keys are matched on word boundaries.
var DefaultSynonyms = map[string]string{
	// product
	"product requirements": "PRD specification requirements document",
	"prd":                  "product requirements document specification",
	"requirements":         "specification spec",
	"roadmap":              "plan milestones timeline",

	// architecture
	"api":          "API endpoint interface",
	"architecture": "system design structure",
	"frontend":     "UI user interface client",
	"backend":      "server service",
	"database":     "DB storage persistence",
	"db":           "database",

	// security
	"auth":  "authentication authorization",
	"oauth": "OAuth authentication authorization token",
	"sso":   "single sign-on authentication",

	// delivery
	"deploy":     "deployment release",
	"ci":         "continuous integration pipeline",
	"pr":         "pull request",
	"k8s":        "kubernetes",
	"config":     "configuration settings",
	"monitoring": "observability metrics alerts",
}
