package catalog

// Entity is a generic catalog entity payload
type Entity struct {
	Identifier string                 `json:"identifier,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Relations  map[string]interface{} `json:"relations,omitempty"`
}

// Patch is a partial entity update applied with PATCH semantics
type Patch struct {
	Properties map[string]interface{} `json:"properties,omitempty"`
	Relations  map[string]interface{} `json:"relations,omitempty"`
}

// User is a catalog user with the team identifiers it belongs to
type User struct {
	Identifier string
	Teams      []string
}
